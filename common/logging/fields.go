package logging

import (
	"log/slog"
	"time"
)

// Common field names so every component logs notifications the same way.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldUserToken  = "user_token"
	FieldItemID     = "item_id"
	FieldOperation  = "operation"
	FieldCollection = "collection"
	FieldAction     = "action"
	FieldDemo       = "demo"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldReason     = "reason"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func UserToken(token string) slog.Attr {
	return slog.String(FieldUserToken, token)
}

func ItemID(id string) slog.Attr {
	return slog.String(FieldItemID, id)
}

func Operation(op string) slog.Attr {
	return slog.String(FieldOperation, op)
}

func Collection(name string) slog.Attr {
	return slog.String(FieldCollection, name)
}

func Action(kind string) slog.Attr {
	return slog.String(FieldAction, kind)
}

func Demo(name string) slog.Attr {
	return slog.String(FieldDemo, name)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration records d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for err. A nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}
