// Package app wires the feature packages into one HTTP handler
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/forumcore/docs"
	"github.com/fkhayef/forumcore/internal/blob"
	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/config"
	"github.com/fkhayef/forumcore/internal/database"
	"github.com/fkhayef/forumcore/internal/ephemeral"
	"github.com/fkhayef/forumcore/internal/forum"
	"github.com/fkhayef/forumcore/internal/invitation"
	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/message"
	"github.com/fkhayef/forumcore/internal/moderation"
	"github.com/fkhayef/forumcore/internal/notification"
	"github.com/fkhayef/forumcore/internal/presence"
	"github.com/fkhayef/forumcore/internal/queue"
	"github.com/fkhayef/forumcore/internal/sweeper"
	"github.com/fkhayef/forumcore/internal/typing"
	"github.com/fkhayef/forumcore/internal/user"
	mw "github.com/fkhayef/forumcore/pkg/middleware"
	"github.com/fkhayef/forumcore/pkg/response"
)

// Options are the process-level resources the app is built on. A nil DB
// selects the in-memory stores, a nil Redis the in-memory presence and
// typing stores, and a nil Queue the inline queue.
type Options struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client

	// Queue and QueueServer are set together
	Queue       queue.Client
	QueueServer queue.Server

	Clock  clock.Clock
	Logger *slog.Logger
}

// App is the assembled service
type App struct {
	Handler http.Handler
	Sweeper *sweeper.Sweeper

	Users         *user.Service
	Forums        *forum.Service
	Members       *membership.Service
	Messages      *message.Service
	Invitations   *invitation.Service
	Moderation    *moderation.Service
	Notifications *notification.Service
	Presence      *presence.Tracker
	Typing        *typing.Tracker
}

type stores struct {
	users         user.Store
	forums        forum.Store
	members       membership.Store
	messages      message.Store
	invitations   invitation.Store
	notifications notification.Store
}

func newStores(db *sql.DB, clk clock.Clock) stores {
	if db == nil {
		locks := database.NewForumLocks()
		forums := forum.NewMemoryStore(locks)
		members := membership.NewMemoryStore(locks, forum.NewLookup(forums))
		forums.CountMembersWith(members)
		return stores{
			users:         user.NewMemoryStore(),
			forums:        forums,
			members:       members,
			messages:      message.NewMemoryStore(locks),
			invitations:   invitation.NewMemoryStore(locks),
			notifications: notification.NewMemoryStore(clk.Now),
		}
	}
	return stores{
		users:         user.NewRepository(db),
		forums:        forum.NewRepository(db),
		members:       membership.NewRepository(db),
		messages:      message.NewRepository(db),
		invitations:   invitation.NewRepository(db),
		notifications: notification.NewRepository(db),
	}
}

func newEphemeral(client *redis.Client, namespace string) ephemeral.Store {
	if client == nil {
		return ephemeral.NewMemoryStore()
	}
	return ephemeral.NewRedisStore(client, namespace)
}

// New builds every service and the router
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if (opts.Queue == nil) != (opts.QueueServer == nil) {
		return nil, fmt.Errorf("app: Queue and QueueServer must be set together")
	}
	if opts.Queue == nil {
		inline := queue.NewInline(logger)
		opts.Queue, opts.QueueServer = inline, inline
	}

	st := newStores(opts.DB, clk)

	// Notifications
	notificationService := notification.NewService(st.notifications)
	notification.RegisterTasks(opts.QueueServer, notificationService)
	dispatcher := notification.NewDispatcher(opts.Queue, logger)

	// Identity
	userService := user.NewService(st.users, cfg.UpstreamTimeout)
	forumLookup := forum.NewLookup(st.forums)

	// Ephemeral state
	presenceTracker := presence.NewTracker(newEphemeral(opts.Redis, "presence"), cfg.PresenceTTL, clk, logger)
	typingTracker := typing.NewTracker(newEphemeral(opts.Redis, "typing"), cfg.TypingTTL, clk)

	memberService := membership.NewService(st.members, forumLookup, clk, logger, presenceTracker, typingTracker)

	// Content
	messageService := message.NewService(st.messages, memberService, cfg.MaxMessageLength, clk, logger)
	messageService.NotifyWith(dispatcher)
	invitationService := invitation.NewService(st.invitations, memberService, forumLookup, userService, dispatcher, clk, logger)
	moderationService := moderation.NewService(memberService, forumLookup, dispatcher, logger, presenceTracker, typingTracker)

	blobStore, err := blob.NewDiskStore(cfg.UploadDir, cfg.UploadBaseURL, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	blobService := blob.NewService(blobStore, memberService, cfg.UpstreamTimeout)

	forumService := forum.NewService(st.forums, memberService, cfg.DefaultMaxMembers, clk, logger,
		memberService, messageService, invitationService, notificationService, presenceTracker, typingTracker)

	a := &App{
		Sweeper: sweeper.New(clk, cfg.SweepInterval, logger, map[string]sweeper.Target{
			"presence": presenceTracker,
			"typing":   typingTracker,
		}),
		Users:         userService,
		Forums:        forumService,
		Members:       memberService,
		Messages:      messageService,
		Invitations:   invitationService,
		Moderation:    moderationService,
		Notifications: notificationService,
		Presence:      presenceTracker,
		Typing:        typingTracker,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", healthHandler(opts.DB, opts.Redis))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	uploads := "/" + strings.Trim(cfg.UploadBaseURL, "/")
	r.Handle(uploads+"/*", http.StripPrefix(uploads+"/", http.FileServer(http.Dir(cfg.UploadDir))))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Authenticate)

		// Mount feature routers
		r.Mount("/users", user.NewHandler(userService).Routes())
		r.Mount("/forums", forum.NewHandler(forumService).Routes(
			membership.NewHandler(memberService),
			moderation.NewHandler(moderationService),
			message.NewHandler(messageService),
			presence.NewHandler(presence.NewService(presenceTracker, memberService)),
			typing.NewHandler(typing.NewService(typingTracker, memberService)),
			invitation.NewHandler(invitationService),
			blob.NewHandler(blobService, cfg.MaxUploadBytes),
		))
		r.Mount("/invitations", invitation.NewHandler(invitationService).Routes())
		r.Mount("/notifications", notification.NewHandler(notificationService).Routes())
	})

	a.Handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", mw.UserIDHeader, mw.UserRoleHeader},
		AllowCredentials: true,
	}).Handler(r)

	return a, nil
}

func healthHandler(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "database unreachable")
				return
			}
			status["database"] = "ok"
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "redis unreachable")
				return
			}
			status["redis"] = "ok"
		}
		response.JSON(w, http.StatusOK, status)
	}
}
