package httpapi

import (
	"net/http"
	"time"

	"unitap-backend-go/internal/config"
	"unitap-backend-go/internal/db"
	"unitap-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Server struct {
	Store  *db.Store
	Engine *services.TapEngine
	Hub    *services.TapHub
	Config config.Config
	Tokens services.TokenService
}

func NewServer(store *db.Store, cfg config.Config, engine *services.TapEngine, hub *services.TapHub) *Server {
	return &Server{
		Store:  store,
		Engine: engine,
		Hub:    hub,
		Config: cfg,
		Tokens: services.TokenService{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.Health)

		api.Post("/tap", s.Tap)
		api.Post("/tap/simulate", s.SimulateTap)
		api.Post("/nfc-events", s.NFCEvent)
		api.Get("/tap-events", s.ListTapEvents)
		api.Get("/stats", s.Stats)

		api.Route("/devices", func(devices chi.Router) {
			devices.Get("/", s.ListDevices)
			devices.Group(func(admin chi.Router) {
				admin.Use(WithAuth(s.Tokens))
				admin.Use(RequireAnyRole("class_admin", "superuser"))
				admin.Post("/", s.RegisterDevice)
				admin.Patch("/{deviceID}", s.UpdateDevice)
			})
		})

		api.Route("/attendance", func(attendance chi.Router) {
			attendance.Get("/lectures", s.ListLectures)
			attendance.Get("/lectures/{lectureID}", s.LectureDetail)
		})

		api.Route("/equipment", func(equipment chi.Router) {
			equipment.Get("/", s.ListEquipment)
			equipment.Get("/{equipmentID}", s.EquipmentDetail)
			equipment.Post("/{equipmentID}/queue", s.JoinEquipmentQueue)
			equipment.Delete("/{equipmentID}/queue", s.LeaveEquipmentQueue)
		})

		api.Route("/gamification", func(gamification chi.Router) {
			gamification.Get("/leaderboard", s.Leaderboard)
			gamification.With(WithAuth(s.Tokens)).Get("/me", s.MyStanding)
			gamification.Get("/badges", s.BadgeMeta)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Tokens))
			admin.Use(RequireAnyRole("class_admin", "superuser"))
			admin.Get("/metrics/history", s.MetricsHistory)
		})
	})

	r.Get("/ws/taps", s.TapSocket)
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
