package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	actormodels "filegov/internal/actor/models"
	filemodels "filegov/internal/files/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// ActorStore defines methods for seeding departments and actors
type ActorStore interface {
	CreateDepartment(ctx context.Context, dept *actormodels.Department) error
	Create(ctx context.Context, actor *actormodels.Actor) error
}

// FileStore defines methods for seeding managed files
type FileStore interface {
	CreateFile(ctx context.Context, file *filemodels.ManagedFile) error
}

// Seeder populates the stores with a small demo organisation. Ids are
// derived from names, so running it twice against Postgres is harmless.
type Seeder struct {
	actors ActorStore
	files  FileStore
	logger *slog.Logger
	now    func() time.Time
}

func New(actors ActorStore, files FileStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		actors: actors,
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

var seedNamespace = uuid.MustParse("6f1c9a4e-2d1b-4c57-9c1e-0a6f3b0d8e21")

func seedID(kind, name string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name))
}

// DepartmentID returns the id the seeder gives a department name.
func DepartmentID(name string) id.DepartmentID {
	return id.DepartmentID(seedID("department", name))
}

// ActorID returns the id the seeder gives an actor handle.
func ActorID(handle string) id.ActorID {
	return id.ActorID(seedID("actor", handle))
}

// FileID returns the id the seeder gives a demo file name.
func FileID(name string) id.FileID {
	return id.FileID(seedID("file", name))
}

var demoDepartments = []string{"Finance", "Legal", "Operations"}

var demoActors = []struct {
	handle      string
	displayName string
	role        actormodels.Role
	department  string
}{
	{"root", "Root Administrator", actormodels.RoleSuperAdmin, ""},
	{"admin", "Records Administrator", actormodels.RoleAdmin, ""},
	{"hod-finance", "Head of Finance", actormodels.RoleHOD, "Finance"},
	{"hod-legal", "Head of Legal", actormodels.RoleHOD, "Legal"},
	{"hod-operations", "Head of Operations", actormodels.RoleHOD, "Operations"},
	{"alice", "Alice Anderson", actormodels.RoleEmployee, "Finance"},
	{"bob", "Bob Brown", actormodels.RoleEmployee, "Finance"},
	{"carol", "Carol Chen", actormodels.RoleEmployee, "Legal"},
	{"dan", "Dan Davis", actormodels.RoleEmployee, "Operations"},
}

var demoFiles = []struct {
	name       string
	size       int64
	mimeType   string
	owner      string
	department string
}{
	{"q1-ledger.xlsx", 48_213, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "alice", "Finance"},
	{"q2-ledger.xlsx", 51_877, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "alice", "Finance"},
	{"expense-policy.pdf", 220_104, "application/pdf", "bob", "Finance"},
	{"vendor-contract.docx", 96_512, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "carol", "Legal"},
	{"nda-template.docx", 31_004, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "carol", "Legal"},
	{"shift-rota.csv", 4_096, "text/csv", "dan", "Operations"},
}

// SeedAll populates all stores with demo data
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")
	now := s.now()

	for _, name := range demoDepartments {
		dept := &actormodels.Department{ID: DepartmentID(name), Name: name, CreatedAt: now}
		if err := skipExisting(s.actors.CreateDepartment(ctx, dept)); err != nil {
			return fmt.Errorf("failed to seed department %s: %w", name, err)
		}
	}

	for _, a := range demoActors {
		var dept *id.DepartmentID
		if a.department != "" {
			d := DepartmentID(a.department)
			dept = &d
		}
		actor, err := actormodels.NewActor(ActorID(a.handle), a.handle, a.displayName, a.role, dept, now)
		if err != nil {
			return fmt.Errorf("failed to build actor %s: %w", a.handle, err)
		}
		if err := skipExisting(s.actors.Create(ctx, actor)); err != nil {
			return fmt.Errorf("failed to seed actor %s: %w", a.handle, err)
		}
	}

	for _, f := range demoFiles {
		dept := DepartmentID(f.department)
		file, err := filemodels.NewManagedFile(FileID(f.name), f.name, f.size, f.mimeType, &dept, ActorID(f.owner), now)
		if err != nil {
			return fmt.Errorf("failed to build file %s: %w", f.name, err)
		}
		if err := skipExisting(s.files.CreateFile(ctx, file)); err != nil {
			return fmt.Errorf("failed to seed file %s: %w", f.name, err)
		}
	}

	s.logger.Info("demo data seeded successfully",
		"departments", len(demoDepartments),
		"actors", len(demoActors),
		"files", len(demoFiles),
	)
	return nil
}

func skipExisting(err error) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return nil
	}
	return err
}
