// Package main hosts the portal CLI entrypoint and command graph.
//
// "portal serve" runs the HTTP surface together with the notification
// workers. The remaining commands are operator tools that talk to the
// workflow store directly: issuing links by hand, inspecting tokens,
// editing CRM stages through the same transition path the links use, and
// checking a deployment before it goes live.
//
// Keep this package lean: new behavior belongs in the internal packages and
// is only surfaced here.
package main
