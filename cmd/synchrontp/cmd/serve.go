/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/facebook/synchrontp/stats"
	"github.com/facebook/synchrontp/synchro"
)

const shutdownTimeout = 5 * time.Second

// flags
var servePortFlag int

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePortFlag, "port", "p", 0, "port to listen on. Overrides monitoring_port from config")
}

type nowResponse struct {
	Time      int64 `json:"time"`
	Corrected int64 `json:"corrected"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// newHandler serves corrected time, diagnostics and metrics
func newHandler(svc *synchro.Service, st *stats.PrometheusStats) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", st.Handler())
	mux.HandleFunc("/now", func(w http.ResponseWriter, r *http.Request) {
		ts, err := svc.CorrectedNow(r.Context())
		if err != nil {
			log.Errorf("corrected time: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, nowResponse{Time: time.Now().Unix(), Corrected: ts})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, svc.Info())
	})
	return mux
}

func serveRun(port int) error {
	st := stats.NewPrometheusStats()
	svc, cfg, err := newService(st)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.MonitoringPort
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newHandler(svc, st),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGQUIT, unix.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting http server on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Warning("Graceful shutdown")
		if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
			log.Warningf("sd_notify: %v", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// resolve the delta up front, so first request doesn't pay for it
	if _, err := svc.Delta(ctx); err != nil {
		log.Errorf("Failed to resolve delta, will retry on request: %v", err)
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warningf("sd_notify: %v", err)
	}
	return g.Wait()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve corrected time, diagnostics and prometheus metrics over http",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := serveRun(servePortFlag); err != nil {
			log.Fatal(err)
		}
	},
}
