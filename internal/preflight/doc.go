// Package preflight provides readiness checks for the filesystem paths and
// backends that portal depends on.
//
// These checks run in two contexts:
//   - "portal serve" calls RunAll at startup and refuses to start when a
//     required check fails.
//   - "portal doctor" prints every result so operators can fix a deployment
//     before links go out.
//
// Optional backends are skipped when their config disables them.
package preflight
