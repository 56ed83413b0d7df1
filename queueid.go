package talon

import "regexp"

// QueueIDPattern associates a mail provider with a pattern that pulls a
// queue/message id out of the final DATA reply.
type QueueIDPattern struct {
	Provider string
	Pattern  *regexp.Regexp // first capture group is the id
}

// DefaultQueueIDTable lists known provider patterns. Entries are evaluated
// in order against each line of the final DATA reply and the first match
// wins; the ordering is part of the contract (note that Postfix and SendGrid
// answer with the same phrasing, so Postfix is deliberately listed first).
// Patterns match the reply text with the status code already stripped.
var DefaultQueueIDTable = []QueueIDPattern{
	{"postfix", regexp.MustCompile(`^2\.0\.0 Ok: queued as (\S+)`)},
	{"exim", regexp.MustCompile(`^OK id=(\S+)`)},
	{"sendmail", regexp.MustCompile(`^2\.0\.0 (\S+) Message accepted for delivery`)},
	{"microsoft-esmtp", regexp.MustCompile(`^2\.[0-9]\.0 (.+)@(?:.+) Queued mail for delivery`)},
	{"amazon-ses", regexp.MustCompile(`^Ok (\S+)$`)},
	{"sendgrid", regexp.MustCompile(`^Ok: queued as (\S+)`)},
	{"campaignmonitor", regexp.MustCompile(`^2\.0\.0 OK:([A-Za-z0-9]{48})`)},
	{"haraka", regexp.MustCompile(`Message Queued \((\S+)\)`)},
	{"zonemta", regexp.MustCompile(`^Message queued as (\S+)`)},
	{"mailjet", regexp.MustCompile(`^OK queued as (\S+)`)},
}

// ExtractQueueID scans the reply lines against the table and returns the
// provider label and captured id of the first match. Best effort: absence
// of a match is not an error.
func ExtractQueueID(table []QueueIDPattern, lines []string) (provider, id string, ok bool) {
	for _, entry := range table {
		for _, line := range lines {
			if m := entry.Pattern.FindStringSubmatch(line); m != nil {
				return entry.Provider, m[1], true
			}
		}
	}
	return "", "", false
}
