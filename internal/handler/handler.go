package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/config"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/export"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/notifier"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/permutation"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/syncer"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/ws"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel *amqp.Channel
	redisClient *redis.Client

	dispatcher *notifier.Dispatcher
	engine     *permutation.Engine
	reconciler *syncer.Reconciler
	gateway    *ws.Gateway
	renderer   *export.Renderer

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	dispatcher := notifier.NewDispatcher(repo, notifier.NewRedisPusher(rdb), time.Duration(cfg.Redis.OperationExpiration)*time.Second)

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		dispatcher: dispatcher,
		engine:     permutation.NewEngine(repo, dispatcher),
		reconciler: syncer.NewReconciler(repo),
		gateway:    ws.NewGateway(cfg, rdb, repo),
		renderer:   export.NewRenderer(),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Put("/sync-time", h.UpdateSyncTime)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Post("/", h.CreateSchedule)
			r.Get("/", h.GetMySchedules)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.schedule)
				r.Get("/", h.GetSchedule)
				r.With(h.requireScheduleEdit).Patch("/", h.UpdateSchedule)
				r.With(h.requireScheduleOwner).Delete("/", h.DeleteSchedule)
				r.Post("/participants", h.AddParticipants)
				r.With(h.requireScheduleEdit).Post("/complete", h.MarkScheduleComplete)
				r.Get("/export", h.ExportSchedule)
				r.Get("/days", h.GetScheduleDays)
				r.Get("/my-selection", h.GetMySelection)
				r.Route("/roles", func(r chi.Router) {
					r.With(h.requireScheduleOwner).Post("/", h.CreateRole)
					r.Get("/", h.GetRoles)
				})
			})
		})

		r.Route("/schedule-days/{id}", func(r chi.Router) {
			r.Get("/time-slots", h.GetTimeSlotsByDay)
		})

		r.Route("/time-slots", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Post("/sync", h.SyncUpload)
			r.Get("/sync", h.SyncDownload)
			r.Post("/{id}/set-alarm", h.SetAlarm)
		})

		r.Route("/permutation-requests", func(r chi.Router) {
			r.Post("/", h.CreatePermutationRequest)
			r.Get("/", h.GetMyPermutationRequests)
			r.Post("/{id}/accept", h.AcceptPermutationRequest)
			r.Post("/{id}/reject", h.RejectPermutationRequest)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.GetMyNotifications)
			r.Post("/read-all", h.MarkAllNotificationsRead)
			r.Post("/{id}/read", h.MarkNotificationRead)
			r.Post("/{id}/delivered", h.MarkNotificationDelivered)
		})

		r.Get("/ws/notifications", h.NotificationWebSocket)
	})
}
