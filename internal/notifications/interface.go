package notifications

// Notifier sends best-effort operational alerts.
type Notifier interface {
	SendAlert(level, message string) error
}
