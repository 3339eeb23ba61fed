package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanstock/feature-cli/internal/features"
	"github.com/urbanstock/feature-cli/internal/loader"
	"github.com/urbanstock/feature-cli/internal/model"
	"github.com/urbanstock/feature-cli/internal/pipeline"
	"github.com/urbanstock/feature-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP feature server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		tables, err := features.LoadTables(cfg.Tables.Path)
		if err != nil {
			return err
		}
		p := pipeline.New(cfg, st, tables)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := st.ListRuns(req.Context(), store.RunFilter{Limit: 100})
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			run, err := st.GetRun(req.Context(), id)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
				return
			}
			stages, err := st.ListStages(req.Context(), id)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"run": run, "stages": stages})
		})

		r.Post("/features", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Region    string              `json:"region"`
				Buildings []featureRequestRow `json:"buildings"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if len(body.Buildings) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "buildings are required"})
				return
			}
			if body.Region == "" {
				body.Region = "default"
			}

			in, err := buildingsFromRequest(body.Buildings)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}

			// Feature runs outlive the request.
			go func() {
				res, err := p.Run(ctx, body.Region, in)
				if err != nil {
					zap.L().Error("feature run failed",
						zap.String("region", body.Region),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("feature run complete",
					zap.String("region", body.Region),
					zap.String("run_id", res.RunID),
					zap.Int("rows", len(res.Buildings)),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"region": body.Region,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type featureRequestRow struct {
	ID          string             `json:"id"`
	WKT         string             `json:"wkt"`
	Numeric     map[string]float64 `json:"numeric,omitempty"`
	Categorical map[string]string  `json:"categorical,omitempty"`
}

func buildingsFromRequest(rows []featureRequestRow) (pipeline.Input, error) {
	var in pipeline.Input
	buildings := make([]model.Building, 0, len(rows))
	for i, row := range rows {
		poly, err := loader.ParseWKTPolygon(row.WKT)
		if err != nil {
			return in, eris.Wrapf(err, "building %d", i)
		}
		b := model.Building{
			ID:          row.ID,
			Footprint:   poly,
			Numeric:     make(map[string]float64, len(row.Numeric)),
			Categorical: make(map[string]string, len(row.Categorical)),
		}
		if b.ID == "" {
			b.ID = fmt.Sprintf("%d", i)
		}
		for name, v := range row.Numeric {
			b.SetNum(name, v)
		}
		for name, v := range row.Categorical {
			b.SetCat(name, v)
		}
		buildings = append(buildings, b)
	}
	in.Buildings = buildings
	return in, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
