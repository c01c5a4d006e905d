package port

import "context"

// StatusPublisher pushes job lifecycle updates to the status queue.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// DLQPublisher parks poison or permanently failed messages with the reason
// they ended up there.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
