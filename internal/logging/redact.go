package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const redacted = "[REDACTED]"

// Redactor replaces known secret values with a placeholder.
type Redactor struct {
	replacer *strings.Replacer
}

func NewRedactor(secrets ...string) *Redactor {
	var pairs []string
	for _, s := range secrets {
		if s == "" {
			continue
		}
		pairs = append(pairs, s, redacted)
	}
	if len(pairs) == 0 {
		return &Redactor{}
	}
	return &Redactor{replacer: strings.NewReplacer(pairs...)}
}

func (r *Redactor) Redact(s string) string {
	if r == nil || r.replacer == nil {
		return s
	}
	return r.replacer.Replace(s)
}

// RedactError returns an error whose message has every secret removed, keeping err in the chain.
func (r *Redactor) RedactError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := r.Redact(msg)
	if clean == msg {
		return err
	}
	return &redactedError{msg: clean, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// RedactHook scrubs secrets from the message and the string or error fields of every entry.
type RedactHook struct {
	redactor *Redactor
}

func NewRedactHook(redactor *Redactor) *RedactHook {
	return &RedactHook{redactor: redactor}
}

func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RedactHook) Fire(entry *logrus.Entry) error {
	entry.Message = h.redactor.Redact(entry.Message)

	for key, value := range entry.Data {
		switch v := value.(type) {
		case string:
			entry.Data[key] = h.redactor.Redact(v)
		case error:
			entry.Data[key] = h.redactor.Redact(v.Error())
		}
	}
	return nil
}
