// Package academic is the university catalog: faculties and the students
// enrolled in them.
package academic

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/andressep95/annotations/pkg/builder"
	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
)

const (
	// Name is the catalog name.
	Name = "academic"
	// Namespace is the PostgreSQL schema of the catalog.
	Namespace = "academic"
)

// Faculty is a school of the university. Its code and name are unique.
type Faculty struct {
	ID             int64          `db:"id,primaryKey,bigint,identityByDefault"`
	FacultyCode    string         `db:"faculty_code,varchar(10),notNull,unique(uk_faculty_code)"`
	Name           string         `db:"name,varchar(100),notNull,unique(uk_faculty_name)"`
	MaxCapacity    *int32         `db:"max_capacity,integer,default(500)"`
	FoundationYear int32          `db:"foundation_year,integer,notNull"`
	AnnualBudget   pgtype.Numeric `db:"annual_budget,numeric(12,2)"`
	CreatedAt      time.Time      `db:"created_at,timestamp,default(CURRENT_TIMESTAMP)"`
}

func (Faculty) TableName() string { return "faculties" }

// Student is enrolled in exactly one Faculty; deleting the faculty deletes
// its students.
type Student struct {
	ID               int64          `db:"id,primaryKey,bigint,identityByDefault"`
	EnrollmentNumber string         `db:"enrollment_number,varchar(20),notNull,unique(uk_student_enrollment)"`
	FirstName        string         `db:"first_name,varchar(50),notNull"`
	LastName         string         `db:"last_name,varchar(50),notNull"`
	Email            string         `db:"email,varchar(100),notNull,unique(uk_student_email)"`
	CurrentSemester  *int32         `db:"current_semester,integer,default(1)"`
	GPA              pgtype.Numeric `db:"gpa,numeric(3,2)"`
	Active           *bool          `db:"active,boolean,default(true)"`
	AdmissionDate    time.Time      `db:"admission_date,date,notNull"`
	CreatedAt        time.Time      `db:"created_at,timestamp,default(CURRENT_TIMESTAMP)"`
	FacultyID        *int64         `db:"faculty_id,bigint,notNull,fk(faculties.id),fkName(fk_student_faculty),onDelete(cascade),index"`
}

func (Student) TableName() string { return "students" }

// Catalog returns the resolved academic catalog.
var Catalog = sync.OnceValues(func() (*registry.Registry, error) {
	catalog := registry.New(Name, Namespace)
	if err := catalog.Register(Faculty{}, Student{}); err != nil {
		return nil, err
	}
	if err := catalog.Resolve(); err != nil {
		return nil, err
	}
	return catalog, nil
})

// Bind returns a query builder for the catalog on db.
func Bind(db *runtime.DB) (*builder.DB, error) {
	catalog, err := Catalog()
	if err != nil {
		return nil, err
	}
	return builder.New(db, catalog), nil
}

// StudentsOfFaculty returns the students enrolled in f.
func StudentsOfFaculty(ctx context.Context, db *builder.DB, f Faculty) ([]Student, error) {
	return builder.Children[Student](ctx, db, f)
}

// FacultyOfStudent returns the faculty s is enrolled in.
func FacultyOfStudent(ctx context.Context, db *builder.DB, s Student) (*Faculty, error) {
	return builder.Parent[Faculty](ctx, db, s)
}
