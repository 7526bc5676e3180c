// Package httpserver exposes the daemon's HTTP API: server lifecycle
// operations, the per-workload file service, the WebSocket console, and
// the health/system diagnostics endpoints.
package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-wings/wings/pkg/apierr"
	"github.com/nexus-wings/wings/pkg/auth"
	"github.com/nexus-wings/wings/pkg/heartbeat"
	"github.com/nexus-wings/wings/pkg/lifecycle"
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/metrics"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/types"
	"github.com/nexus-wings/wings/pkg/wsmux"
)

// maxUploadBytes bounds multipart upload memory buffering.
const maxUploadBytes = 100 * 1024 * 1024

// Server serves the daemon's HTTP API.
type Server struct {
	engine  *lifecycle.Engine
	adapter runtime.Adapter
	mux     *wsmux.Multiplexer
	creds   auth.Credentials
	dataDir string
	version string

	httpSrv *http.Server
	tlsCert string
	tlsKey  string
}

// Config bundles the collaborators a Server needs.
type Config struct {
	Engine  *lifecycle.Engine
	Adapter runtime.Adapter
	WSMux   *wsmux.Multiplexer
	Creds   auth.Credentials
	Addr    string
	DataDir string
	Version string
	TLSCert string
	TLSKey  string
}

// New builds a Server listening on cfg.Addr once Run is called.
func New(cfg Config) *Server {
	s := &Server{
		engine:  cfg.Engine,
		adapter: cfg.Adapter,
		mux:     cfg.WSMux,
		creds:   cfg.Creds,
		dataDir: cfg.DataDir,
		version: cfg.Version,
		tlsCert: cfg.TLSCert,
		tlsKey:  cfg.TLSKey,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/system", s.auth(s.handleSystem))

	mux.HandleFunc("POST /api/servers", s.auth(s.handleCreate))
	mux.HandleFunc("DELETE /api/servers/{uuid}", s.auth(s.handleDelete))
	mux.HandleFunc("POST /api/servers/{uuid}/power", s.auth(s.handlePower))
	mux.HandleFunc("POST /api/servers/{uuid}/command", s.auth(s.handleCommand))
	mux.HandleFunc("PUT /api/servers/{uuid}/resources", s.auth(s.handleResources))
	mux.HandleFunc("GET /api/servers/{uuid}/status", s.auth(s.handleStatus))
	mux.HandleFunc("POST /api/servers/{uuid}/install", s.auth(s.handleInstall))

	mux.HandleFunc("GET /api/servers/{uuid}/files", s.auth(s.handleFilesList))
	mux.HandleFunc("GET /api/servers/{uuid}/files/read", s.auth(s.handleFileRead))
	mux.HandleFunc("POST /api/servers/{uuid}/files/write", s.auth(s.handleFileWrite))
	mux.HandleFunc("POST /api/servers/{uuid}/files/directory", s.auth(s.handleFileMkdir))
	mux.HandleFunc("POST /api/servers/{uuid}/files/rename", s.auth(s.handleFileRename))
	mux.HandleFunc("POST /api/servers/{uuid}/files/delete", s.auth(s.handleFileDelete))
	mux.HandleFunc("POST /api/servers/{uuid}/files/compress", s.auth(s.handleFileCompress))
	mux.HandleFunc("POST /api/servers/{uuid}/files/decompress", s.auth(s.handleFileDecompress))
	mux.HandleFunc("POST /api/servers/{uuid}/files/upload", s.auth(s.handleFileUpload))

	mux.HandleFunc("GET /api/servers/{uuid}/ws", s.handleWebSocket)

	return s.instrument(mux)
}

// instrument records request count and duration for every route.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(r.Method))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade take over the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

// auth wraps next with the bearer token check every authenticated route
// shares. The health endpoint, the /metrics endpoint and the WebSocket
// route (which carries its token as a query parameter) bypass this wrapper.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.creds.AcceptHeader(r.Header.Get("Authorization")) {
			writeError(w, apierr.Auth("missing or invalid bearer token"))
			return
		}
		next(w, r)
	}
}

// Run serves until ctx is cancelled, then performs a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errC := make(chan error, 1)
	go func() {
		var err error
		if s.tlsCert != "" && s.tlsKey != "" {
			err = s.httpSrv.ListenAndServeTLS(s.tlsCert, s.tlsKey)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if e, ok := apierr.As(err); ok {
		msg = e.Message
	}
	respond(w, apierr.HTTPStatusFor(err), map[string]string{"error": msg})
}

// pathUUID extracts and validates the {uuid} path segment.
func pathUUID(r *http.Request) (string, error) {
	raw := r.PathValue("uuid")
	if _, err := uuid.Parse(raw); err != nil {
		return "", apierr.NotFound(fmt.Sprintf("unknown server %q", raw))
	}
	return raw, nil
}

func (s *Server) serverRoot(uuid string) string {
	return filepath.Join(s.dataDir, uuid)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	dockerVersion, err := s.adapter.Version(r.Context())
	if err != nil {
		writeError(w, apierr.Runtime("get runtime version", err))
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"docker_version": dockerVersion,
		"uptime_seconds": heartbeat.UptimeSeconds(),
	})
}

// createRequest accepts both the camelCase install field names the Panel
// sends and their snake_case equivalents.
type createRequest struct {
	Server           types.WorkloadSpec `json:"server"`
	InstallScript    string             `json:"installScript"`
	InstallScriptAlt string             `json:"install_script"`
	InstallImage     string             `json:"installDockerImage"`
	InstallImageAlt  string             `json:"install_docker_image"`
}

func (c createRequest) installScript() string {
	if c.InstallScript != "" {
		return c.InstallScript
	}
	return c.InstallScriptAlt
}

func (c createRequest) installImage() string {
	if c.InstallImage != "" {
		return c.InstallImage
	}
	return c.InstallImageAlt
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.Config("invalid request body"))
		return
	}
	if req.Server.UUID == "" || req.Server.Image == "" {
		writeError(w, apierr.Config("server uuid and image are required"))
		return
	}

	containerID, err := s.engine.Create(r.Context(), req.Server, req.installScript(), req.installImage())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{
		"container_id": containerID,
		"uuid":         req.Server.UUID,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	removeVolumes, _ := strconv.ParseBool(r.URL.Query().Get("remove_volumes"))
	if err := s.engine.Delete(r.Context(), id, removeVolumes); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierr.Config("invalid request body"))
		return
	}
	action, ok := types.ParsePowerAction(body.Action)
	if !ok {
		writeError(w, apierr.Config(fmt.Sprintf("unknown power action %q", body.Action)))
		return
	}
	if err := s.engine.PowerAction(r.Context(), id, action); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Command == "" {
		writeError(w, apierr.Config("command is required"))
		return
	}
	if err := s.engine.SendCommand(r.Context(), id, body.Command); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		MemoryLimit int64 `json:"memory_limit"`
		CPULimit    int64 `json:"cpu_limit"`
		DiskLimit   int64 `json:"disk_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierr.Config("invalid request body"))
		return
	}
	if err := s.engine.UpdateResources(r.Context(), id, body.MemoryLimit, body.CPULimit, body.DiskLimit); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := s.engine.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, status)
}

// installRequest accepts the same field aliases the original accepted:
// script/installScript and installDockerImage, plus an optional inline
// server spec to (re)register before the install runs.
type installRequest struct {
	Script           string              `json:"script"`
	InstallScript    string              `json:"installScript"`
	InstallScriptAlt string              `json:"install_script"`
	InstallImage     string              `json:"installDockerImage"`
	InstallImageAlt  string              `json:"install_image"`
	Server           *types.WorkloadSpec `json:"server"`
}

func (i installRequest) script() string {
	for _, s := range []string{i.InstallScript, i.InstallScriptAlt, i.Script} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (i installRequest) image() string {
	if i.InstallImage != "" {
		return i.InstallImage
	}
	return i.InstallImageAlt
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body installRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierr.Config("invalid request body"))
		return
	}
	if body.script() == "" || body.image() == "" {
		writeError(w, apierr.Config("installScript and installDockerImage are required"))
		return
	}

	spec, err := s.installSpec(id, body.Server)
	if err != nil {
		writeError(w, err)
		return
	}
	s.engine.Reinstall(spec, body.script(), body.image())
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

// installSpec resolves the spec an install run targets: an inline spec
// from the request body wins, otherwise the registry entry for id.
func (s *Server) installSpec(id string, inline *types.WorkloadSpec) (types.WorkloadSpec, error) {
	if inline != nil && inline.UUID != "" {
		spec := *inline
		spec.VolumePath = s.serverRoot(spec.UUID)
		return spec, nil
	}
	spec, ok := s.engine.Spec(id)
	if !ok {
		return types.WorkloadSpec{}, apierr.NotFound(fmt.Sprintf("no spec registered for %s", id))
	}
	return spec, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !s.creds.AcceptToken(r.URL.Query().Get("token")) {
		writeError(w, apierr.Auth("missing or invalid websocket token"))
		return
	}
	s.mux.Serve(w, r, id)
}
