package controller

import (
	"log"
	"net/http"

	"campus-idcards/models"
	"campus-idcards/repository"
)

// StudentController handles HTTP requests for student records
type StudentController struct {
	repository repository.StudentRepositoryInterface
}

// NewStudentController creates a new StudentController
func NewStudentController(repo repository.StudentRepositoryInterface) *StudentController {
	return &StudentController{
		repository: repo,
	}
}

// ListStudents handles GET /admin/students?classId=
// Returns the students available for card selection, optionally filtered by class.
func (c *StudentController) ListStudents(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("classId")

	students, err := c.repository.List(r.Context(), classID)
	if err != nil {
		writeError(w, "ListStudents", err)
		return
	}
	if students == nil {
		students = []models.Student{}
	}
	log.Printf("✓ ListStudents: %d students (classId=%q)", len(students), classID)
	writeJSON(w, http.StatusOK, students)
}
