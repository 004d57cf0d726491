package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/minhvu/faceclock/internal/web/handlers"
	"github.com/minhvu/faceclock/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.ledger)
	recognizeHandler := handlers.NewRecognizeHandler(s.config, s.ledger)
	trainHandler := handlers.NewTrainHandler(s.config, s.store, s.jobManager)
	statusHandler := handlers.NewStatusHandler(s.config, s.store)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.config.Server.AuthToken, s.config.Server.AdminToken))

			// Recognition
			r.Post("/recognize", recognizeHandler.Recognize)

			// Attendance
			r.Post("/attendance/check-in", attendanceHandler.CheckIn)
			r.Post("/attendance/check-out", attendanceHandler.CheckOut)
			r.Get("/attendance", attendanceHandler.List)
			r.Get("/attendance/{identity}", attendanceHandler.History)

			// Training (long-running operations)
			r.Post("/train", trainHandler.Start)
			r.Get("/train", trainHandler.List)
			r.Get("/train/{jobId}", trainHandler.Status)
			r.Delete("/train/{jobId}", trainHandler.Cancel)

			// Corpus and model state
			r.Get("/corpus/stats", statusHandler.CorpusStats)
			r.Get("/model", statusHandler.Model)
		})
	})
}
