package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"filegov/internal/actor/models"
	id "filegov/pkg/domain"
)

var (
	actorCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegov_actor_cache_hits_total",
		Help: "Actor directory lookups served from the LRU cache",
	}, []string{"lookup"})
	actorCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegov_actor_cache_misses_total",
		Help: "Actor directory lookups that fell through to the backing store",
	}, []string{"lookup"})
)

// Directory is the read side of the actor store.
type Directory interface {
	FindByID(ctx context.Context, actorID id.ActorID) (*models.Actor, error)
	FindByHandle(ctx context.Context, handle string) (*models.Actor, error)
	FindByRoles(ctx context.Context, roles []models.Role) ([]*models.Actor, error)
	FindByRoleAndDepartment(ctx context.Context, role models.Role, departmentID id.DepartmentID) ([]*models.Actor, error)
	DepartmentName(ctx context.Context, departmentID id.DepartmentID) (string, error)
}

// CachedDirectory fronts handle and department-name lookups with an
// expiring LRU. Audience queries always hit the backing store so that
// fan-out sees role changes immediately.
type CachedDirectory struct {
	next        Directory
	byHandle    *expirable.LRU[string, *models.Actor]
	departments *expirable.LRU[id.DepartmentID, string]
}

func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:        next,
		byHandle:    expirable.NewLRU[string, *models.Actor](size, nil, ttl),
		departments: expirable.NewLRU[id.DepartmentID, string](size, nil, ttl),
	}
}

func (c *CachedDirectory) FindByHandle(ctx context.Context, handle string) (*models.Actor, error) {
	key := models.NormalizeHandle(handle)
	if actor, ok := c.byHandle.Get(key); ok {
		actorCacheHits.WithLabelValues("handle").Inc()
		return copyActor(actor), nil
	}
	actorCacheMisses.WithLabelValues("handle").Inc()

	actor, err := c.next.FindByHandle(ctx, key)
	if err != nil {
		return nil, err
	}
	c.byHandle.Add(key, copyActor(actor))
	return actor, nil
}

func (c *CachedDirectory) FindByID(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	return c.next.FindByID(ctx, actorID)
}

func (c *CachedDirectory) FindByRoles(ctx context.Context, roles []models.Role) ([]*models.Actor, error) {
	return c.next.FindByRoles(ctx, roles)
}

func (c *CachedDirectory) FindByRoleAndDepartment(ctx context.Context, role models.Role, departmentID id.DepartmentID) ([]*models.Actor, error) {
	return c.next.FindByRoleAndDepartment(ctx, role, departmentID)
}

func (c *CachedDirectory) DepartmentName(ctx context.Context, departmentID id.DepartmentID) (string, error) {
	if name, ok := c.departments.Get(departmentID); ok {
		actorCacheHits.WithLabelValues("department").Inc()
		return name, nil
	}
	actorCacheMisses.WithLabelValues("department").Inc()

	name, err := c.next.DepartmentName(ctx, departmentID)
	if err != nil {
		return "", err
	}
	c.departments.Add(departmentID, name)
	return name, nil
}

// Invalidate drops a cached handle, e.g. after an actor was deactivated.
func (c *CachedDirectory) Invalidate(handle string) {
	c.byHandle.Remove(models.NormalizeHandle(handle))
}
