package privilege

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/krzsas/security-manager/pkg/log"
	"github.com/krzsas/security-manager/pkg/metrics"
	"github.com/krzsas/security-manager/pkg/protocol"
	"github.com/krzsas/security-manager/pkg/server"
	"github.com/krzsas/security-manager/pkg/storage"
	"github.com/krzsas/security-manager/pkg/types"
)

// DefaultSocketPath is the privilege service's unix socket
const DefaultSocketPath = "/run/security-manager/privilege.sock"

// Service answers privilege queries and mutations over the socket
// framework. One instance is registered at daemon startup; all its
// requests are serialized on the service worker goroutine.
type Service struct {
	store      storage.Store
	socketPath string
	logger     zerolog.Logger
}

// New creates the privilege service backed by the shared store
func New(store storage.Store, socketPath string) *Service {
	return &Service{
		store:      store,
		socketPath: socketPath,
		logger:     log.WithService("privilege"),
	}
}

// Description implements server.Handler
func (s *Service) Description() server.Description {
	return server.Description{
		Name:       "privilege",
		SocketPath: s.socketPath,
	}
}

// HandleMessage implements server.Handler. A frame body that does not
// decode into a request is a protocol violation and closes the
// connection; store failures become error responses and leave the
// connection open.
func (s *Service) HandleMessage(creds types.Credentials, body []byte) ([]byte, bool) {
	req, err := protocol.DecodeRequest(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("undecodable request")
		return nil, false
	}

	timer := prometheusTimer(req.Op)
	resp := s.handle(creds, req)
	timer.ObserveDuration()
	metrics.RequestsTotal.WithLabelValues(req.Op.String(), resp.Status.String()).Inc()

	frame, err := protocol.EncodeFrame(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("cannot encode response")
		return nil, false
	}
	return frame, true
}

// handle executes one decoded request against the privilege store
func (s *Service) handle(creds types.Credentials, req *protocol.Request) *protocol.Response {
	// Privilege-sensitive mutations are honored only for the superuser
	// or for the caller's own uid, per the transport credentials.
	switch req.Op {
	case protocol.OpAddApp, protocol.OpRemoveApp, protocol.OpUpdateAppPrivileges:
		if !creds.IsRoot() && creds.UID != req.UID {
			s.logger.Warn().Uint32("caller_uid", creds.UID).Uint32("target_uid", req.UID).
				Str("op", req.Op.String()).Msg("access denied")
			return &protocol.Response{Status: protocol.StatusAccessDenied}
		}
	}

	// One request holds the store for its whole (possibly
	// transactional) sequence; at most one write sequence is in flight
	// daemon-wide.
	s.store.Lock()
	defer s.store.Unlock()

	switch req.Op {
	case protocol.OpAddApp:
		return s.status(s.inTransaction(func() error {
			return s.store.AddApplication(req.AppID, req.PkgID, req.UID)
		}))

	case protocol.OpRemoveApp:
		var noMore bool
		err := s.inTransaction(func() error {
			var err error
			noMore, err = s.store.RemoveApplication(req.AppID, req.UID)
			return err
		})
		if err != nil {
			return s.status(err)
		}
		return &protocol.Response{Status: protocol.StatusOK, PkgIDIsNoMore: noMore}

	case protocol.OpUpdateAppPrivileges:
		return s.status(s.inTransaction(func() error {
			return s.store.UpdateAppPrivileges(req.AppID, req.UID, req.Privileges)
		}))

	case protocol.OpGetAppPkgID:
		pkgID, err := s.store.GetAppPkgID(req.AppID)
		if err != nil {
			return s.status(err)
		}
		return &protocol.Response{Status: protocol.StatusOK, PkgID: pkgID}

	case protocol.OpGetAppPrivileges:
		return s.names(s.store.GetAppPrivileges(req.AppID, req.UID))

	case protocol.OpGetPkgPrivileges:
		return s.names(s.store.GetPkgPrivileges(req.PkgID, req.UID))

	case protocol.OpGetPrivilegeGroups:
		return s.names(s.store.GetPrivilegeGroups(req.Privilege))

	case protocol.OpGetUserApps:
		return s.names(s.store.GetUserApps(req.UID))

	case protocol.OpGetAppIDsForPkg:
		return s.names(s.store.GetAppIDsForPkgID(req.PkgID))

	case protocol.OpPkgIDExists:
		exists, err := s.store.PkgIDExists(req.PkgID)
		if err != nil {
			return s.status(err)
		}
		return &protocol.Response{Status: protocol.StatusOK, Exists: exists}

	default:
		s.logger.Warn().Uint8("op", uint8(req.Op)).Msg("unknown operation")
		return &protocol.Response{Status: protocol.StatusError}
	}
}

// inTransaction brackets fn in an explicit transaction and rolls back
// on any failure so no partial state survives
func (s *Service) inTransaction(fn func() error) error {
	if err := s.store.BeginTransaction(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := s.store.RollbackTransaction(); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return s.store.CommitTransaction()
}

// status maps a store error to a response
func (s *Service) status(err error) *protocol.Response {
	switch {
	case err == nil:
		return &protocol.Response{Status: protocol.StatusOK}
	case errors.Is(err, types.ErrNotFound):
		return &protocol.Response{Status: protocol.StatusNotFound}
	default:
		metrics.StoreErrors.Inc()
		s.logger.Error().Err(err).Msg("store operation failed")
		return &protocol.Response{Status: protocol.StatusError}
	}
}

// names wraps a string-list result
func (s *Service) names(names []string, err error) *protocol.Response {
	if err != nil {
		return s.status(err)
	}
	return &protocol.Response{Status: protocol.StatusOK, Names: names}
}
