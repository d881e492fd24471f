package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	// SubjectPrefix is the default prefix for invocation subjects.
	SubjectPrefix = "rpc"
	// SubjectInvocationEvent is the global invocation event subject.
	SubjectInvocationEvent = "dispatch.invoked"
)

// BuildServiceSubject builds the COMMS subject a service invoker listens on.
// Dots in the service name are token separators in COMMS, so they are
// replaced with underscores.
func BuildServiceSubject(prefix, service string) string {
	if prefix == "" {
		prefix = SubjectPrefix
	}
	safe := strings.ReplaceAll(service, ".", "_")
	return fmt.Sprintf("%s.%s", prefix, safe)
}

// BuildEventSubject builds the granular invocation event subject for a
// service.
func BuildEventSubject(service string) string {
	safe := strings.ReplaceAll(service, ".", "_")
	return fmt.Sprintf("%s.%s", SubjectInvocationEvent, safe)
}
