package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"quorumsig/internal/logger"
	"quorumsig/internal/multisig"
)

// defaultRequestTimeout bounds one signing request when the caller's
// context has no deadline.
const defaultRequestTimeout = 30 * time.Second

// Endpoint names one holder's signer address.
type Endpoint struct {
	Index int    // Index is the holder's position in the composite key
	Addr  string // Addr is the holder's QUIC endpoint
}

// Collect fans the signing message out to the holder endpoints and fans
// verified partial signatures back in. Every returned partial has been
// checked against the holder's slot in the composite key, so the result
// feeds Combine directly. Collection stops early once the key's threshold
// is reached; endpoints that fail, time out or return a bad partial are
// skipped. Returns ErrInsufficientSignatures (wrapped) when the endpoint
// pool is exhausted below the threshold.
func Collect(ctx context.Context, key *multisig.CompositePublicKey, endpoints []Endpoint, message []byte) ([]multisig.IndexedSignature, error) {
	threshold := key.Threshold()
	suite := key.Suite()

	for _, ep := range endpoints {
		if ep.Index < 0 || ep.Index >= key.Len() {
			return nil, fmt.Errorf("%w: endpoint index %d with %d holders", multisig.ErrIndexOutOfRange, ep.Index, key.Len())
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan multisig.IndexedSignature, len(endpoints))

	var validCount atomic.Int32
	var wg sync.WaitGroup

	for _, ep := range endpoints {
		wg.Add(1)

		go func(ep Endpoint) {
			defer wg.Done()

			signature, err := requestPartial(ctx, ep.Addr, message)
			if err != nil {
				logger.Debug("partial request failed", "index", ep.Index, "addr", ep.Addr, "error", err)
				results <- multisig.IndexedSignature{Index: -1}
				return
			}

			if !suite.Verify(signature, message, key.Key(ep.Index)) {
				logger.Warn("holder returned invalid partial", "index", ep.Index, "addr", ep.Addr)
				results <- multisig.IndexedSignature{Index: -1}
				return
			}

			validCount.Add(1)
			results <- multisig.IndexedSignature{Index: ep.Index, Signature: signature}
		}(ep)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var partials []multisig.IndexedSignature

	for res := range results {
		if res.Index < 0 {
			continue
		}

		partials = append(partials, res)

		// Early exit once the quorum is reached; pending requests are
		// cancelled via ctx.
		if int(validCount.Load()) >= threshold && len(partials) >= threshold {
			break
		}
	}

	if len(partials) < threshold {
		return nil, fmt.Errorf("%w: collected %d of %d from %d endpoints",
			multisig.ErrInsufficientSignatures, len(partials), threshold, len(endpoints))
	}

	return partials, nil
}

// requestPartial dials one signer endpoint and requests a partial
// signature over message.
func requestPartial(ctx context.Context, addr string, message []byte) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: true, // Partials are verified against the composite key instead
		NextProtos:         []string{alpnProtocol},
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConfig, &quic.Config{
		MaxIdleTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s:\n%w", addr, err)
	}
	defer conn.CloseWithError(0, "done")

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}

	if err := writeFrame(stream, EncodeSignRequest(message)); err != nil {
		return nil, fmt.Errorf("write request:\n%w", err)
	}

	response, err := readFrame(stream)
	if err != nil {
		return nil, fmt.Errorf("read response:\n%w", err)
	}

	return DecodeSignResponse(response)
}
