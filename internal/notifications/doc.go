// Package notifications delivers workflow links to the people who answer
// them.
//
// A Sender performs a single delivery attempt; the webhook sender talks to a
// messaging provider, the ntfy sender posts to a topic, and the noop sender
// is used when delivery is disabled. The Dispatcher queues jobs for a small
// pool of workers so request handlers never wait on a provider. Failures are
// logged and counted, never retried, and never reported back to the workflow:
// a token stays usable when its link could not be delivered.
package notifications
