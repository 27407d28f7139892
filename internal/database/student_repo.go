package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vdtri/classlens/internal/models"
)

type StudentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByName returns the student with the exact name, or nil when no such
// student exists. Absence is not an error here: enrollment uses it to
// decide between reuse and creation.
func (r *StudentRepository) FindByName(ctx context.Context, name string) (*models.Student, error) {
	query := r.db.rebind(`SELECT id, name, created_at FROM students WHERE name = ?`)

	var student models.Student
	err := r.db.conn.QueryRowContext(ctx, query, name).Scan(&student.ID, &student.Name, &student.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by name: %w", err)
	}
	return &student, nil
}

func (r *StudentRepository) Create(ctx context.Context, name string) (*models.Student, error) {
	student := &models.Student{Name: name, CreatedAt: time.Now()}

	if r.db.dbType == "postgres" {
		query := `INSERT INTO students (name, created_at) VALUES ($1, $2) RETURNING id`
		if err := r.db.conn.QueryRowContext(ctx, query, student.Name, student.CreatedAt).Scan(&student.ID); err != nil {
			return nil, fmt.Errorf("failed to create student: %w", err)
		}
		return student, nil
	}

	result, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO students (name, created_at) VALUES (?, ?)`,
		student.Name, student.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new student id: %w", err)
	}
	student.ID = id
	return student, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query := r.db.rebind(`SELECT id, name, created_at FROM students WHERE id = ?`)

	var student models.Student
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(&student.ID, &student.Name, &student.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("student %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT id, name, created_at FROM students ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var student models.Student
		if err := rows.Scan(&student.ID, &student.Name, &student.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}
	return students, rows.Err()
}
