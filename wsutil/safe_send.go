package wsutil

import "log/slog"

// SafeSend sends data to a channel without panicking if the channel is
// closed. Delivery is best-effort: a full or closed channel drops the
// message, matching the protocol's no-redelivery rule. Panics are recovered
// and logged for debugging.
func SafeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("SafeSend recovered panic", "tag", "wsutil", "panic", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}
