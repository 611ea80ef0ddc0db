package envfile

import "strings"

// reconcileAdminCredentials guarantees that the admin username and password
// assignments exist with non-empty values. It runs strictly after
// placeholder substitution, so a concrete admin password from the template
// is never overwritten here.
func reconcileAdminCredentials(lines []string, gen Generator, opts Options) []string {
	userPrefix := opts.AdminUsernameKey + "="
	passPrefix := opts.AdminPasswordKey + "="

	hasUser := false
	hasPass := false
	for _, line := range lines {
		if strings.HasPrefix(line, userPrefix) {
			hasUser = true
		}
		if strings.HasPrefix(line, passPrefix) {
			hasPass = true
		}
	}

	out := make([]string, 0, len(lines)+2)
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, userPrefix):
			if value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSuffix(line, "\n"), userPrefix)); value == "" {
				out = append(out, userPrefix+opts.AdminUsernameDefault+"\n")
				continue
			}
			out = append(out, line)
		case strings.HasPrefix(line, passPrefix):
			if value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSuffix(line, "\n"), passPrefix)); value == "" {
				out = append(out, passPrefix+gen.Password(ServicePasswordLength)+"\n")
				continue
			}
			out = append(out, line)
		default:
			out = append(out, line)
		}
	}

	if !hasUser {
		out = appendLine(out, userPrefix+opts.AdminUsernameDefault+"\n")
	}
	if !hasPass {
		out = appendLine(out, passPrefix+gen.Password(ServicePasswordLength)+"\n")
	}
	return out
}

// appendLine appends an assignment, first terminating a final template line
// that lacks a trailing newline.
func appendLine(lines []string, line string) []string {
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}
	return append(lines, line)
}
