package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	api "github.com/examforge/examportal/internal/api/http"
	"github.com/examforge/examportal/internal/audit"
	"github.com/examforge/examportal/internal/auth"
	"github.com/examforge/examportal/internal/config"
	"github.com/examforge/examportal/internal/db"
	"github.com/examforge/examportal/internal/exam"
	"github.com/examforge/examportal/internal/feedback"
	"github.com/examforge/examportal/internal/identity"
	"github.com/examforge/examportal/internal/profile"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	cfg := config.FromEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}

	users := identity.NewStore(dbh)
	if err := users.SeedAdmin(ctx, cfg.AdminUser, cfg.AdminEmail, cfg.AdminPassHash); err != nil {
		log.WithError(err).Fatal("seed admin failed")
	}

	store := exam.NewSQLStore(dbh)
	router := api.NewRouter(api.Deps{
		Log:         log,
		Auth:        auth.NewService(cfg.JWTSecret),
		Users:       users,
		Store:       store,
		Engine:      exam.NewEngine(store),
		Profiles:    profile.NewStore(dbh),
		Feedback:    feedback.NewStore(dbh),
		Events:      audit.NewRepo(dbh),
		CORSOrigins: cfg.CORSOrigins,
	})

	log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "db": cfg.DBDriver}).Info("listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, router); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
