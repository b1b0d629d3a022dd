package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"quorumsig/internal/logger"
	"quorumsig/internal/multisig"
)

// Server is a holder-side signer endpoint. It answers signing requests
// with partial signatures from its key holder and nothing else; the
// holder's private material never crosses the wire.
type Server struct {
	holder     multisig.KeyHolder // holder produces the partial signatures
	listenAddr string             // listenAddr is the QUIC listen address
	tlsConfig  *tls.Config        // tlsConfig is the listener's TLS identity

	listener *quic.Listener // listener is the QUIC listener

	ctx    context.Context    // ctx is the server's context
	cancel context.CancelFunc // cancel cancels the server's context
	wg     sync.WaitGroup     // wg waits for connection goroutines
}

// ServerConfig holds the configuration for a Server.
type ServerConfig struct {
	Holder     multisig.KeyHolder // Holder is the signing key holder
	ListenAddr string             // ListenAddr is the address to listen on (e.g. "127.0.0.1:0")
	Identity   ed25519.PrivateKey // Identity is the TLS identity key; generated when nil
}

// NewServer creates a signer endpoint for the given holder.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Holder == nil {
		return nil, fmt.Errorf("holder is required")
	}

	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	identity := cfg.Identity
	if identity == nil {
		var err error
		if _, identity, err = ed25519.GenerateKey(rand.Reader); err != nil {
			return nil, fmt.Errorf("generate identity:\n%w", err)
		}
	}

	cert, err := generateCertificate(identity)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		holder:     cfg.Holder,
		listenAddr: cfg.ListenAddr,
		tlsConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{alpnProtocol},
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start begins listening and serving signing requests.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.listenAddr, s.tlsConfig, &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("listen %s:\n%w", s.listenAddr, err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the listener's address. Returns empty string if not started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Close stops the server and waits for in-flight requests.
func (s *Server) Close() error {
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.wg.Wait()

	return err
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			return
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn serves signing streams on one connection.
func (s *Server) handleConn(conn *quic.Conn) {
	defer s.wg.Done()

	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			return
		}

		s.wg.Add(1)
		go s.handleStream(stream)
	}
}

// handleStream answers one signing request.
func (s *Server) handleStream(stream *quic.Stream) {
	defer s.wg.Done()
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(30 * time.Second))

	data, err := readFrame(stream)
	if err != nil {
		logger.Debug("read request failed", "error", err)
		return
	}

	message, err := DecodeSignRequest(data)
	if err != nil {
		logger.Debug("bad signing request", "error", err)
		writeFrame(stream, EncodeRefusal(refusalReason(err)))
		return
	}

	signature := s.holder.Sign(message)

	if err := writeFrame(stream, EncodeSignResponse(signature)); err != nil {
		logger.Debug("write response failed", "error", err)
	}
}

// refusalReason maps a request decode failure to its refusal reason code.
func refusalReason(err error) byte {
	if errors.Is(err, errMessageTooLarge) {
		return reasonTooLarge
	}

	return reasonMalformed
}
