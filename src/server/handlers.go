package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
	"quantsim/src/version"
)

// @title Quantsim API
// @version 1.0
// @description Live view and control of the market simulation
// @host localhost:8080
// @BasePath /

// WebSocketMessageType represents the type of WebSocket message
// @Description Type of message being sent over WebSocket connection
type WebSocketMessageType string

const (
	// Metrics asks for the run summary
	Metrics WebSocketMessageType = "metrics"
	// Command pauses or resumes the run
	Command WebSocketMessageType = "command"
)

// WebSocketMessage represents a message sent over WebSocket
// @Description Message structure for WebSocket communication
type WebSocketMessage struct {
	// Type of the WebSocket message (metrics or command)
	// Required: true
	// Enum: metrics, command
	MessageType WebSocketMessageType `json:"message_type" example:"command"`
	// Raw JSON message payload
	// Required: false
	Message json.RawMessage `json:"message,omitempty" swaggertype:"object"`
}

type ResponseType string

const (
	ResponseWelcome ResponseType = "welcome"
	ResponseReplay  ResponseType = "replay"
	ResponseSummary ResponseType = "summary"
	ResponseStatus  ResponseType = "status"
	ResponseError   ResponseType = "error"
)

// WebSocketResponse represents a response sent back over WebSocket
// @Description Response structure for WebSocket communication
type WebSocketResponse struct {
	// Whether the operation was successful
	// Required: true
	Success bool `json:"success" example:"true"`
	// What Data holds
	Type ResponseType `json:"type" example:"status"`
	// Response payload data
	// Required: false
	Data any `json:"data,omitempty"`
	// Error message if operation failed
	// Required: false
	Error string `json:"error,omitempty" example:"unknown command action"`
}

type CommandAction string

const (
	Start  CommandAction = "start"
	Stop   CommandAction = "stop"
	Status CommandAction = "status"
)

// CommandData represents a command to be sent over WebSocket
// @Description Data structure for command messages
type CommandData struct {
	// Command action to be performed
	// Required: true
	Action CommandAction `json:"action" example:"stop"`
}

// RunStatus is the answer to every command.
type RunStatus struct {
	Paused bool `json:"paused"`
	Steps  int  `json:"steps"`
}

// RegisterHealthCheck registers the health check endpoint
// @Summary Health check endpoint
// @Description Returns health status of the quantsim service
// @Tags health
// @Produce plain
// @Success 200 {string} string "quantsim is healthy"
// @Router /health [get]
func (s *Server) RegisterHealthCheck() {
	s.httpMux.HandleFunc(s.healthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("quantsim is healthy"))
	})
}

// RegisterVersion registers the build and runtime info endpoint
// @Summary Version endpoint
// @Description Returns build info and process resource usage
// @Tags health
// @Produce json
// @Success 200 {object} map[string]map[string]string
// @Router /version [get]
func (s *Server) RegisterVersion() {
	s.httpMux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]map[string]string{
			"build":  version.GetBuildInfo(),
			"system": general.GetSystemUsage(),
		})
	})
}

// RegisterWebSocketHandler registers the WebSocket endpoint
// @Summary WebSocket connection endpoint
// @Description Streams step records and accepts commands. New clients first get the recent records.
// @Tags websocket
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching protocols to websocket"
// @Router /ws [get]
func (s *Server) RegisterWebSocketHandler() {
	s.httpMux.HandleFunc("/ws", s.handleWebSocket)
}

// RegisterSwagger registers the Swagger documentation endpoint
// @Summary Swagger documentation endpoint
// @Description Serves Swagger API documentation UI and JSON spec
// @Tags docs
// @Produce json,html
// @Success 200 {string} string "Swagger documentation UI"
// @Router /swagger [get]
func (s *Server) RegisterSwagger() {
	s.httpMux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// RegisterPlot registers the live chart endpoint
// @Summary Chart of the run so far
// @Description Price with trade markers, portfolio value and drawdown as a PNG
// @Tags metrics
// @Produce png
// @Success 200 {file} binary
// @Failure 503 {string} string "no records yet"
// @Router /plot.png [get]
func (s *Server) RegisterPlot() {
	s.httpMux.HandleFunc("/plot.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if err := s.plotter.WritePNG(w); err != nil {
			slog.Warn("Failed to render plot", "error", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		}
	})
}

// handleMetrics answers with the summary of the run so far
// @Description Returns the run summary over WebSocket connection
// @Produce json
// @Success 200 {object} WebSocketResponse
func (s *Server) handleMetrics(payload []byte) WebSocketResponse {
	return WebSocketResponse{
		Success: true,
		Type:    ResponseSummary,
		Data:    s.controller.Summary(),
	}
}

// handleCommand pauses or resumes the run
// @Description Handles incoming command data over WebSocket connection
// @Accept json
// @Produce json
// @Param payload body CommandData true "Command payload"
// @Success 200 {object} WebSocketResponse
// @Failure 400 {object} WebSocketResponse
func (s *Server) handleCommand(payload []byte) WebSocketResponse {
	var commandData CommandData
	if err := json.Unmarshal(payload, &commandData); err != nil {
		slog.Warn("Failed to unmarshal command payload", "error", err)
		return errorResponse(err)
	}

	switch commandData.Action {
	case Start:
		s.controller.Resume()
	case Stop:
		s.controller.Pause()
	case Status:
	default:
		return errorResponse(errors.Newf("unknown command action: %s", commandData.Action))
	}
	slog.Info("Server handled command", "action", commandData.Action)

	return WebSocketResponse{
		Success: true,
		Type:    ResponseStatus,
		Data: RunStatus{
			Paused: s.controller.IsPaused(),
			Steps:  s.controller.Steps(),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write json response", "error", err)
	}
}
