// =============================================
// File: internal/chain/subscription.go
// =============================================
package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// wsSubscription adapts a websocket signature subscription to the
// StatusSubscription interface. The node notifies once, when the
// signature reaches the subscribed commitment or fails.
type wsSubscription struct {
	sub   *ws.SignatureSubscription
	level ConfirmationLevel
}

func (s *wsSubscription) Recv(ctx context.Context) (*TxStatus, error) {
	result, err := s.sub.Recv(ctx)
	if err != nil {
		return nil, err
	}
	return &TxStatus{
		Slot:  result.Context.Slot,
		Level: s.level,
		Err:   result.Value.Err,
	}, nil
}

func (s *wsSubscription) Unsubscribe() {
	s.sub.Unsubscribe()
}

func (f *Fleet) SubscribeSignature(ctx context.Context, sig solana.Signature, level ConfirmationLevel) (StatusSubscription, error) {
	if f.ws == nil {
		return nil, ErrNoWebSocket
	}
	sub, err := f.ws.SignatureSubscribe(sig, level.Commitment())
	if err != nil {
		return nil, err
	}
	return &wsSubscription{sub: sub, level: level}, nil
}
