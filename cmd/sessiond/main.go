package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/quantyverse/qv-session-manager/internal/config"
	"github.com/quantyverse/qv-session-manager/internal/logger"
	"github.com/quantyverse/qv-session-manager/internal/server"
	"github.com/quantyverse/qv-session-manager/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		logger.L.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	srv := server.New(st)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", addr, "database", cfg.Database.Path)
	if err := http.ListenAndServe(addr, srv); err != nil {
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
