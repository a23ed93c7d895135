package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ovpnconf/api/types"
	"ovpnconf/internal/app"
	"ovpnconf/internal/cipher"
	"ovpnconf/internal/logbuffer"
	"ovpnconf/internal/validator"
	"ovpnconf/models"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	app  *app.App
	logs *logbuffer.RingBuffer
}

func NewHandler(a *app.App, logs *logbuffer.RingBuffer) *Handler {
	return &Handler{app: a, logs: logs}
}

// readTunnel decodes the request and projects the named instance. It writes
// the error response itself and returns nil on failure.
func (h *Handler) readTunnel(w http.ResponseWriter, r *http.Request) *models.TunnelConfig {
	req, err := ReadJson[types.IntentReq](w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	if req.Interface == "" {
		WriteError(w, http.StatusBadRequest, "no interface in request")
		return nil
	}
	cfg, err := app.ParseIntent([]byte(req.Intent))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	t, err := app.BuildTunnel(cfg, req.Interface)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	return t
}

// writeFailure answers a validation failure with 422 and any other error with 500.
func writeFailure(w http.ResponseWriter, intf string, err error) {
	var failure *validator.Failure
	if errors.As(err, &failure) {
		WriteJson(w, http.StatusUnprocessableEntity, types.ValidateRes{
			Interface: intf,
			Rule:      string(failure.Rule),
			Message:   failure.Msg,
		})
		return
	}
	log.Error().Err(err).Str("interface", intf).Msg("dry run failed")
	WriteError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	req, err := ReadJson[types.IntentReq](w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := app.ParseIntent([]byte(req.Intent))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	instances := app.InstanceNames(cfg)
	if instances == nil {
		instances = []string{}
	}
	WriteJson(w, http.StatusOK, types.InstancesRes{Instances: instances})
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	t := h.readTunnel(w, r)
	if t == nil {
		return
	}
	refined, err := h.app.Check(t)
	if err != nil {
		writeFailure(w, t.Interface, err)
		return
	}
	WriteJson(w, http.StatusOK, types.ValidateRes{
		Interface: refined.Interface,
		Valid:     true,
		Deleted:   refined.Deleted,
	})
}

func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	t := h.readTunnel(w, r)
	if t == nil {
		return
	}
	refined, res, err := h.app.Render(t)
	if err != nil {
		writeFailure(w, t.Interface, err)
		return
	}
	out := types.RenderRes{Interface: refined.Interface, Deleted: refined.Deleted}
	if res != nil {
		out.Main = res.Main
		out.Clients = res.Clients
	}
	WriteJson(w, http.StatusOK, out)
}

func (h *Handler) GetCiphers(w http.ResponseWriter, r *http.Request) {
	WriteJson(w, http.StatusOK, types.CiphersRes{Ciphers: cipher.Names()})
}

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	res := types.LogsRes{Logs: []types.LogRes{}}
	if h.logs != nil {
		for _, e := range h.logs.GetFiltered(q.Get("level"), q.Get("interface"), limit) {
			res.Logs = append(res.Logs, types.LogRes{
				Time:      e.Time.Format(time.RFC3339),
				Level:     e.Level,
				Message:   e.Message,
				Interface: e.Interface,
				Error:     e.Error,
			})
		}
	}
	WriteJson(w, http.StatusOK, res)
}
