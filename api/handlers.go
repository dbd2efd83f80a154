package api

import (
	"net/http"
	"quadnav/models"
	"quadnav/navigation"
	"quadnav/obstacle"
	"quadnav/quadtree"
	"quadnav/search"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/gorilla/mux"
	"github.com/segmentio/encoding/json"
)

const ErrTypeInvalidRequest = "api_invalid_request"

// Handler serves the navigation service over HTTP.
type Handler struct {
	service *navigation.Service
}

func NewHandler(service *navigation.Service) *Handler {
	return &Handler{service: service}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusCode(err error) int {
	switch errors.Type(err) {
	case navigation.ErrTypeMapNotFound:
		return http.StatusNotFound

	case models.ErrTypeMapExists:
		return http.StatusConflict

	case ErrTypeInvalidRequest,
		navigation.ErrTypeOutOfBounds,
		navigation.ErrTypeInvalidObstacle,
		navigation.ErrTypeInvalidMap,
		obstacle.ErrTypeUnknownShape,
		obstacle.ErrTypeInvalidRect,
		search.ErrTypeInvalidLeaf:
		return http.StatusBadRequest

	case search.ErrTypeUnreachable:
		return http.StatusUnprocessableEntity

	case search.ErrTypeAborted:
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn(errors.New("writing response failed").Wrap(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		logs.WithTag("method", r.Method).
			WithTag("path", r.URL.Path).
			Error(err)
	}

	errType := errors.Type(err)
	if errType == "" {
		errType = "internal"
	}

	writeJSON(w, status, errorResponse{
		Error:   errType,
		Message: err.Error(),
	})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request payload").
			WithType(ErrTypeInvalidRequest).
			Wrap(err)
	}
	return nil
}

func queryFloat(r *http.Request, name string) (float64, bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, errors.New("invalid query parameter").
			WithType(ErrTypeInvalidRequest).
			WithTag("name", name).
			WithTag("value", s).
			Wrap(err)
	}
	return v, true, nil
}

// CreateMap handles POST /maps.
func (h *Handler) CreateMap(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMapRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.service.CreateMap(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetMap handles GET /maps/{map_id}.
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetMap(r.Context(), mux.Vars(r)["map_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AddObstacles handles POST /maps/{map_id}/obstacles.
func (h *Handler) AddObstacles(w http.ResponseWriter, r *http.Request) {
	var req models.AddObstaclesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.service.AddObstacles(r.Context(), mux.Vars(r)["map_id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClearObstacles handles DELETE /maps/{map_id}/obstacles.
func (h *Handler) ClearObstacles(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ClearObstacles(r.Context(), mux.Vars(r)["map_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListObstacles handles GET /maps/{map_id}/obstacles. The min_x, min_y,
// max_x and max_y query parameters restrict the result to an area; they
// must be given all together or not at all.
func (h *Handler) ListObstacles(w http.ResponseWriter, r *http.Request) {
	var (
		bounds [4]float64
		given  int
	)
	for i, name := range []string{"min_x", "min_y", "max_x", "max_y"} {
		v, ok, err := queryFloat(r, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if ok {
			bounds[i] = v
			given++
		}
	}

	var area *quadtree.Bounds
	switch given {
	case 0:
	case 4:
		area = &quadtree.Bounds{MinX: bounds[0], MinY: bounds[1], MaxX: bounds[2], MaxY: bounds[3]}
	default:
		writeError(w, r, errors.New("area needs min_x, min_y, max_x and max_y").
			WithType(ErrTypeInvalidRequest))
		return
	}

	obstacles, err := h.service.Obstacles(r.Context(), mux.Vars(r)["map_id"], area)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obstacles)
}

// Locate handles GET /maps/{map_id}/leaf?x=&y=.
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	x, okX, err := queryFloat(r, "x")
	if err != nil {
		writeError(w, r, err)
		return
	}
	y, okY, err := queryFloat(r, "y")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !okX || !okY {
		writeError(w, r, errors.New("x and y are required").
			WithType(ErrTypeInvalidRequest))
		return
	}

	res, err := h.service.Locate(r.Context(), mux.Vars(r)["map_id"], models.Vec2{X: x, Y: y})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FindPath handles POST /maps/{map_id}/path.
func (h *Handler) FindPath(w http.ResponseWriter, r *http.Request) {
	var req models.PathRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.service.FindPath(r.Context(), mux.Vars(r)["map_id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FlowField handles POST /maps/{map_id}/flowfield.
func (h *Handler) FlowField(w http.ResponseWriter, r *http.Request) {
	var req models.FlowFieldRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.service.FlowField(r.Context(), mux.Vars(r)["map_id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// NextStep handles POST /maps/{map_id}/next.
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	var req models.NextStepRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.service.NextStep(r.Context(), mux.Vars(r)["map_id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
