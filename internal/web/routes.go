package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/class-attend/internal/web/handlers"
	"github.com/kozaktomas/class-attend/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.config, s.deps.Roster, s.deps.Ledger, s.deps.Matcher, s.deps.Detector, s.deps.Orderer)
	studentHandler := handlers.NewStudentHandler(s.config, s.deps.Roster, s.deps.Ledger, s.deps.Detector, s.deps.Orderer, s.deps.Index)
	teacherHandler := handlers.NewTeacherHandler(s.deps.Teachers)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.APIToken))

		// Attendance
		r.Post("/attendance/recognize", attendanceHandler.Recognize)
		r.Post("/attendance/manual", attendanceHandler.Manual)
		r.Get("/attendance/report", attendanceHandler.Report)

		// Students
		r.Get("/students", studentHandler.List)
		r.Post("/students", studentHandler.Create)
		r.Post("/students/{usn}/enroll", studentHandler.Enroll)
		r.Get("/students/{usn}/attendance", studentHandler.Attendance)

		// Teachers
		r.Get("/teachers", teacherHandler.List)
		r.Post("/teachers", teacherHandler.Create)
		r.Delete("/teachers/{id}", teacherHandler.Delete)
	})
}
