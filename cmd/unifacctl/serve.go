package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"unifac/internal/metrics"
	"unifac/internal/paramtable"
	unifacapi "unifac/pkg/unifac"
)

const maxRequestBytes = 8 << 20

type stateJSON struct {
	X []float64 `json:"x"`
	T float64   `json:"t"`
}

type evaluateRequestJSON struct {
	Table       string           `json:"table,omitempty"`
	InlineTable *unifacapi.Table `json:"inline_table,omitempty"`
	States      []stateJSON      `json:"states"`
}

type evaluateResponseJSON struct {
	RunID         string      `json:"run_id"`
	Table         string      `json:"table"`
	CreatedAtUTC  string      `json:"created_at_utc"`
	Components    []string    `json:"components"`
	States        []stateJSON `json:"states"`
	Combinatorial [][]float64 `json:"combinatorial"`
	Residual      [][]float64 `json:"residual"`
	Gamma         [][]float64 `json:"gamma"`
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func runServe(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	addr := fs.String("addr", "", "listen address (default metrics.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if *addr == "" {
		*addr = cfg.Metrics.Addr
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	if err := client.Init(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServeMux(client, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("serving", zap.String("addr", *addr))
	fmt.Fprintf(stdout, "listening addr=%s\n", *addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newServeMux(client *unifacapi.Client, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	mux.HandleFunc("GET /v1/tables", func(w http.ResponseWriter, r *http.Request) {
		names, err := client.Tables(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSONStatus(w, http.StatusOK, map[string][]string{"tables": names})
	})
	mux.HandleFunc("POST /v1/evaluate", func(w http.ResponseWriter, r *http.Request) {
		var body evaluateRequestJSON
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, errorJSON{Error: fmt.Sprintf("decode request: %v", err)})
			return
		}
		if body.Table == "" && body.InlineTable == nil {
			writeJSONStatus(w, http.StatusBadRequest, errorJSON{Error: "request needs table or inline_table"})
			return
		}

		req := unifacapi.EvaluateRequest{
			TableName: body.Table,
			Table:     body.InlineTable,
			States:    make([]unifacapi.State, len(body.States)),
		}
		for i, st := range body.States {
			req.States[i] = unifacapi.State{X: st.X, T: st.T}
		}

		summary, err := client.Evaluate(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSONStatus(w, http.StatusOK, responseFromSummary(summary))
	})
	return mux
}

func responseFromSummary(s unifacapi.EvaluateSummary) evaluateResponseJSON {
	states := make([]stateJSON, len(s.States))
	for i, st := range s.States {
		states[i] = stateJSON{X: st.X, T: st.T}
	}
	return evaluateResponseJSON{
		RunID:         s.RunID,
		Table:         s.TableName,
		CreatedAtUTC:  s.CreatedAtUTC,
		Components:    s.Components,
		States:        states,
		Combinatorial: s.Combinatorial,
		Residual:      s.Residual,
		Gamma:         s.Gamma,
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := metrics.ErrorKind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, unifacapi.ErrTableNotFound):
		status = http.StatusNotFound
		kind = "table_not_found"
	case kind != "other":
		status = http.StatusUnprocessableEntity
	case errors.Is(err, paramtable.ErrInvalidTable),
		errors.Is(err, paramtable.ErrUnknownSubgroup),
		errors.Is(err, paramtable.ErrMissingInteraction):
		status = http.StatusBadRequest
		kind = "invalid_table"
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		kind = ""
	}
	writeJSONStatus(w, status, errorJSON{Error: err.Error(), Kind: kind})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
