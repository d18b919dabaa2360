package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	actormodels "filegov/internal/actor/models"
	filemodels "filegov/internal/files/models"
	id "filegov/pkg/domain"
)

// TestIDs provides pre-generated IDs for deterministic test data.
var TestIDs = struct {
	DeptFinance id.DepartmentID
	DeptLegal   id.DepartmentID
	FileID1     id.FileID
	FileID2     id.FileID
	FileID3     id.FileID
}{
	DeptFinance: id.DepartmentID(uuid.MustParse("dddd0000-0000-0000-0000-000000000001")),
	DeptLegal:   id.DepartmentID(uuid.MustParse("dddd0000-0000-0000-0000-000000000002")),
	FileID1:     id.FileID(uuid.MustParse("ffff0000-0000-0000-0000-000000000001")),
	FileID2:     id.FileID(uuid.MustParse("ffff0000-0000-0000-0000-000000000002")),
	FileID3:     id.FileID(uuid.MustParse("ffff0000-0000-0000-0000-000000000003")),
}

// FixedTime is the clock most fixtures are stamped with.
var FixedTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// Dept returns a pointer to a copy of the department id.
func Dept(d id.DepartmentID) *id.DepartmentID {
	return &d
}

// ActorBuilder provides a fluent interface for building test actors.
type ActorBuilder struct {
	actor *actormodels.Actor
}

// NewActorBuilder creates an active EMPLOYEE in the finance department.
func NewActorBuilder(handle string) *ActorBuilder {
	return &ActorBuilder{
		actor: &actormodels.Actor{
			ID:           id.ActorID(uuid.New()),
			Handle:       actormodels.NormalizeHandle(handle),
			DisplayName:  handle,
			Role:         actormodels.RoleEmployee,
			DepartmentID: Dept(TestIDs.DeptFinance),
			Active:       true,
			CreatedAt:    FixedTime,
		},
	}
}

func (b *ActorBuilder) WithID(actorID id.ActorID) *ActorBuilder {
	b.actor.ID = actorID
	return b
}

func (b *ActorBuilder) WithDisplayName(name string) *ActorBuilder {
	b.actor.DisplayName = name
	return b
}

// WithRole sets the role; administrative roles drop the department.
func (b *ActorBuilder) WithRole(role actormodels.Role) *ActorBuilder {
	b.actor.Role = role
	if role.IsAdministrative() {
		b.actor.DepartmentID = nil
	}
	return b
}

func (b *ActorBuilder) InDepartment(d id.DepartmentID) *ActorBuilder {
	b.actor.DepartmentID = Dept(d)
	return b
}

func (b *ActorBuilder) Inactive() *ActorBuilder {
	b.actor.Active = false
	return b
}

func (b *ActorBuilder) Build() *actormodels.Actor {
	return b.actor
}

// FileBuilder provides a fluent interface for building live files.
type FileBuilder struct {
	file *filemodels.ManagedFile
}

// NewFileBuilder creates a finance-department PDF with a random id.
func NewFileBuilder(owner id.ActorID) *FileBuilder {
	fileID := id.FileID(uuid.New())
	return &FileBuilder{
		file: &filemodels.ManagedFile{
			ID:           fileID,
			Name:         fmt.Sprintf("report-%s.pdf", fileID.String()[:8]),
			Size:         2048,
			MimeType:     "application/pdf",
			DepartmentID: Dept(TestIDs.DeptFinance),
			OwnerID:      owner,
			CreatedAt:    FixedTime,
			UpdatedAt:    FixedTime,
		},
	}
}

func (b *FileBuilder) WithID(fileID id.FileID) *FileBuilder {
	b.file.ID = fileID
	return b
}

func (b *FileBuilder) WithName(name string) *FileBuilder {
	b.file.Name = name
	return b
}

func (b *FileBuilder) WithSize(size int64) *FileBuilder {
	b.file.Size = size
	return b
}

func (b *FileBuilder) InDepartment(d id.DepartmentID) *FileBuilder {
	b.file.DepartmentID = Dept(d)
	return b
}

func (b *FileBuilder) WithoutDepartment() *FileBuilder {
	b.file.DepartmentID = nil
	return b
}

func (b *FileBuilder) Disabled() *FileBuilder {
	b.file.Disabled = true
	return b
}

func (b *FileBuilder) CreatedAt(t time.Time) *FileBuilder {
	b.file.CreatedAt = t
	b.file.UpdatedAt = t
	return b
}

func (b *FileBuilder) Build() *filemodels.ManagedFile {
	return b.file
}
