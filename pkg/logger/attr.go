package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the emitting component under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Provider records the identity provider under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// AccountID records the local account identifier under the key "account_id".
// If id is empty, it returns an empty Attr.
func AccountID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("account_id", id)
}

// SubjectID records the provider-assigned subject id under the key
// "subject_id".
func SubjectID(id string) slog.Attr {
	return slog.String("subject_id", id)
}
