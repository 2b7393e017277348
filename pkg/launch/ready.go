package launch

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

func waitTCP(ctx context.Context, address string) error {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()

	for {
		d := net.Dialer{Timeout: 200 * time.Millisecond}
		conn, err := d.DialContext(ctx, "tcp", address)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "tcp ready timeout")
		case <-t.C:
		}
	}
}
