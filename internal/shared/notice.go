package shared

// NoticeLevel is the severity of a user-visible notification.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "info"
	case NoticeWarn:
		return "warn"
	case NoticeError:
		return "error"
	default:
		return ""
	}
}

// Notice is a non-blocking, user-visible notification (a "toast").
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier delivers notices to the presentation layer.
//
// Implementations must not block the caller.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// NopNotifier discards every notice.
type NopNotifier struct{}

func (NopNotifier) Notify(Notice) {}

// ChanNotifier forwards notices to a buffered channel, dropping them when the channel is full.
type ChanNotifier chan Notice

func (c ChanNotifier) Notify(n Notice) {
	select {
	case c <- n:
	default:
	}
}
