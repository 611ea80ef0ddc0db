package envfile

import "strings"

// secretKind selects which Generator entry point replaces a placeholder.
type secretKind int

const (
	kindPassword secretKind = iota
	kindSecretKey
	kindSalt
)

// sentinelRule maps a placeholder substring to the secret that replaces it.
// The table is ordered: the first rule whose pattern occurs in the value
// wins and no further rules are checked.
type sentinelRule struct {
	pattern string
	kind    secretKind
	length  int
}

var sentinelRules = []sentinelRule{
	{"change_me_with_a_secure_key", kindSecretKey, DefaultSecretKeyLength},
	{"change_me_on_first_login", kindPassword, ServicePasswordLength},
	{"change_me_with_a_secure_secret", kindSecretKey, DefaultSecretKeyLength},
	{"change_me_with_a_secure_salt", kindSalt, 0},
	{"change_me_with_64_char_hex_key_generate_via_openssl_rand_hex_32", kindSecretKey, DefaultSecretKeyLength},
	{"change_me_langfuse_password", kindPassword, ServicePasswordLength},
	{"change_me_clickhouse_password", kindPassword, ServicePasswordLength},
	{"change_me_minio_password", kindPassword, ServicePasswordLength},
	{"change_me_redis_password", kindPassword, ServicePasswordLength},
}

// bareDefaultRule matches a well-known insecure default by exact equality
// (after trimming), optionally prefixed with a single '-'.
type bareDefaultRule struct {
	token  string
	kind   secretKind
	length int
}

var bareDefaultRules = []bareDefaultRule{
	{"mysecret", kindSecretKey, 32},
	{"mysalt", kindSalt, 0},
	{"miniosecret", kindPassword, ServicePasswordLength},
	{"myredissecret", kindPassword, ServicePasswordLength},
	{"clickhouse", kindPassword, ServicePasswordLength},
	{"postgres", kindPassword, ServicePasswordLength},
}

// databasePasswordKeys are unconditionally regenerated: whatever value the
// template carries for these keys, the output gets a fresh password.
var databasePasswordKeys = []string{
	"MLFLOW_POSTGRES_PASSWORD",
	"MLFLOW_POSTGRES_AUTH_PASSWORD",
	"LANGFUSE_POSTGRES_PASSWORD",
}

// Options tunes the provisioning engine. The zero value selects defaults.
type Options struct {
	// RewriteExpansions controls whether sentinel substrings found inside
	// ${...} expansion expressions are replaced in place. The default
	// (false) keeps values containing "${" byte-for-byte identical to the
	// template, since they resolve against the runtime environment.
	RewriteExpansions bool

	// AdminUsernameKey and AdminPasswordKey name the two assignments the
	// reconciler guarantees to exist with non-empty values.
	AdminUsernameKey string
	AdminPasswordKey string

	// AdminUsernameDefault is inserted when the username is missing or
	// empty.
	AdminUsernameDefault string
}

func (o Options) withDefaults() Options {
	if o.AdminUsernameKey == "" {
		o.AdminUsernameKey = "MLFLOW_ADMIN_USERNAME"
	}
	if o.AdminPasswordKey == "" {
		o.AdminPasswordKey = "MLFLOW_ADMIN_PASSWORD"
	}
	if o.AdminUsernameDefault == "" {
		o.AdminUsernameDefault = "admin"
	}
	return o
}

// splitAssignment splits a template line into key, value and line ending.
// ok is false for comments, blank lines and anything else that is not a
// KEY=VALUE assignment; such lines always pass through verbatim.
func splitAssignment(line string) (key, value, eol string, ok bool) {
	body := strings.TrimSuffix(line, "\n")
	if body != line {
		eol = "\n"
	}
	if strings.HasPrefix(strings.TrimSpace(body), "#") {
		return "", "", "", false
	}
	idx := strings.Index(body, "=")
	if idx < 0 {
		return "", "", "", false
	}
	return body[:idx], body[idx+1:], eol, true
}

func generate(gen Generator, kind secretKind, length int) string {
	switch kind {
	case kindSecretKey:
		return gen.SecretKey(length)
	case kindSalt:
		return gen.Salt()
	default:
		return gen.Password(length)
	}
}

// processLine applies the substitution rules to a single template line and
// returns the output line. Non-assignment lines are returned unchanged.
//
// Rule order is strict and first-match-wins:
//  1. database-password keys regenerate regardless of value,
//  2. sentinel substrings replace the whole value,
//  3. bare defaults (never inside ${...}) replace the trimmed value,
//     preserving a single leading '-',
//  4. anything else is concrete and kept.
func processLine(line string, gen Generator, opts Options) string {
	key, value, eol, ok := splitAssignment(line)
	if !ok {
		return line
	}

	trimmedKey := strings.TrimSpace(key)
	for _, dbKey := range databasePasswordKeys {
		if trimmedKey == dbKey {
			return key + "=" + gen.Password(ServicePasswordLength) + eol
		}
	}

	hasExpansion := strings.Contains(value, "${")
	if !hasExpansion || opts.RewriteExpansions {
		for _, rule := range sentinelRules {
			if !strings.Contains(value, rule.pattern) {
				continue
			}
			if hasExpansion {
				// Inside an expansion only the sentinel itself is
				// rewritten, keeping the ${VAR:-...} syntax intact.
				value = strings.ReplaceAll(value, rule.pattern, generate(gen, rule.kind, rule.length))
			} else {
				value = generate(gen, rule.kind, rule.length)
			}
			return key + "=" + value + eol
		}
	}

	if !hasExpansion {
		trimmed := strings.TrimSpace(value)
		for _, rule := range bareDefaultRules {
			if trimmed == rule.token {
				return key + "=" + generate(gen, rule.kind, rule.length) + eol
			}
			if trimmed == "-"+rule.token {
				return key + "=-" + generate(gen, rule.kind, rule.length) + eol
			}
		}
	}

	return line
}
