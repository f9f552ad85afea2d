package web

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/kvadminer/kvadminer/internal/audit"
	"github.com/kvadminer/kvadminer/internal/keys"
	"github.com/kvadminer/kvadminer/internal/kverr"
	"github.com/kvadminer/kvadminer/internal/metrics"
	"github.com/kvadminer/kvadminer/internal/value"
)

// maxBodyBytes bounds a /set body: the value plus room for key and type.
const maxBodyBytes = value.MaxValueBytes + value.MaxKeyBytes + 1024

// request carries what every store-facing handler needs.
type request struct {
	sessionID string
	rdb       *redis.Client
	endpoint  string // host:port for logs and audit, never the password
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *request) error

// instrument resolves the session and its store connection, runs h, renders
// any returned error and records latency under op.
func (s *Server) instrument(op string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		}()

		sid := s.resolveSession(w, r)
		ep := endpointFrom(r)
		err := func() error {
			rdb, err := s.sessions.GetOrCreate(sid, ep)
			if err != nil {
				return err
			}
			return h(w, r, &request{sessionID: sid, rdb: rdb, endpoint: ep.String()})
		}()
		if err == nil {
			return
		}

		kind := kverr.KindOf(err)
		metrics.Errors.WithLabelValues(kind.String()).Inc()
		ev := s.log.Debug()
		if statusFor(kind) >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Err(err).Str("op", op).Str("session", sid).Str("endpoint", ep.String()).Msg("request failed")
		writeError(w, err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, req *request) error {
	key := r.PathValue("key")
	if err := value.ValidateKey(key); err != nil {
		return err
	}

	entry, err := value.Read(r.Context(), req.rdb, key)
	if err != nil {
		return err
	}
	if !entry.Exists() {
		return kverr.E(kverr.KindNotFound, "web: get", fmt.Errorf("key %q not found", key))
	}
	writeJSON(w, http.StatusOK, entry)
	return nil
}

type setRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request, req *request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return kverr.Invalid("web: set", "reading body: %v", err)
	}
	var in setRequest
	if err := sonic.Unmarshal(body, &in); err != nil {
		return kverr.Invalid("web: set", "decoding body: %v", err)
	}

	target := value.Scalar
	if in.Type != "" {
		if target, err = value.ParseType(in.Type); err != nil {
			return err
		}
	}
	if err := value.ValidateKey(in.Key); err != nil {
		return err
	}
	if err := value.ValidateValue(in.Value); err != nil {
		return err
	}

	if err := value.Write(r.Context(), req.rdb, in.Key, in.Value, target); err != nil {
		return err
	}
	s.publish(audit.Event{
		Action:    audit.ActionSet,
		SessionID: req.sessionID,
		Endpoint:  req.endpoint,
		Key:       in.Key,
		Type:      target.String(),
	})

	writeJSON(w, http.StatusOK, value.Entry{Key: in.Key, Type: target, Value: in.Value})
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, req *request) error {
	key := r.PathValue("key")
	if err := value.ValidateKey(key); err != nil {
		return err
	}

	existed, err := value.Delete(r.Context(), req.rdb, key)
	if err != nil {
		return err
	}
	s.publish(audit.Event{
		Action:    audit.ActionDelete,
		SessionID: req.sessionID,
		Endpoint:  req.endpoint,
		Key:       key,
		Existed:   &existed,
	})
	if !existed {
		return kverr.E(kverr.KindNotFound, "web: delete", fmt.Errorf("key %q not found", key))
	}

	writeJSON(w, http.StatusOK, struct {
		Key     string `json:"key"`
		Deleted bool   `json:"deleted"`
	}{Key: key, Deleted: true})
	return nil
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request, req *request) error {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 0)
	if err != nil {
		return kverr.Invalid("web: keys", "page: %v", err)
	}
	size, err := intParam(q.Get("page_size"), s.config.DefaultPageSize)
	if err != nil {
		return kverr.Invalid("web: keys", "page_size: %v", err)
	}

	result, err := s.lister.List(r.Context(), req.rdb, keys.Query{
		Page:     page,
		PageSize: size,
		Search:   q.Get("search"),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func (s *Server) publish(e audit.Event) {
	if err := s.audit.Publish(e); err != nil {
		s.log.Warn().Err(err).Str("key", e.Key).Msg("audit event dropped")
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
