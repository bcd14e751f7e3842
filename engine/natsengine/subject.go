package natsengine

import (
	"fmt"
	"strings"
)

// Key expressions map onto NATS subjects chunk by chunk: `/` becomes `.`,
// `*` stays `*`, and `**` becomes `>`. NATS only allows `>` as the final
// token, so a `**` anywhere else widens the subscription to the whole data
// space and the engine filters locally by key intersection.

// dataSubject maps a concrete key expression to its publish subject.
// Wildcard chunks are rejected: data is always published to one key.
func dataSubject(prefix, key string) (string, error) {
	chunks := strings.Split(key, "/")
	for _, chunk := range chunks {
		if err := validChunk(chunk); err != nil {
			return "", err
		}
		if chunk == "*" || chunk == "**" {
			return "", fmt.Errorf("cannot publish to wildcard key expression %q", key)
		}
	}
	return prefix + ".data." + strings.Join(chunks, "."), nil
}

// subscribeSubject maps a key expression to a subscription subject. The
// second result reports whether the subject matches exactly the keys the
// expression covers; when false the subscriber must filter received
// samples by key intersection.
func subscribeSubject(prefix, key string) (string, bool, error) {
	chunks := strings.Split(key, "/")
	tokens := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := validChunk(chunk); err != nil {
			return "", false, err
		}
		if chunk == "**" {
			if i == len(chunks)-1 {
				tokens = append(tokens, ">")
				continue
			}
			// Mid-expression `**` has no NATS equivalent.
			return prefix + ".data.>", false, nil
		}
		tokens = append(tokens, chunk)
	}
	return prefix + ".data." + strings.Join(tokens, "."), true, nil
}

// querySubject is the broadcast subject every queryable listens on.
func querySubject(prefix string) string {
	return prefix + ".query"
}

// keyFromSubject recovers the key expression a data subject was published
// under.
func keyFromSubject(prefix, subject string) (string, error) {
	head := prefix + ".data."
	if !strings.HasPrefix(subject, head) {
		return "", fmt.Errorf("subject %q is outside the %q data space", subject, prefix)
	}
	return strings.ReplaceAll(strings.TrimPrefix(subject, head), ".", "/"), nil
}

func validChunk(chunk string) error {
	if chunk == "" {
		return fmt.Errorf("key expression has an empty chunk")
	}
	if strings.ContainsAny(chunk, ". ") {
		return fmt.Errorf("key chunk %q contains a character that cannot map to a NATS subject", chunk)
	}
	return nil
}
