// Package ybld provides the shared error taxonomy and process-wide
// utilities (interruptible contexts, at-exit hooks) used by ybld's
// resolver packages under internal/.
package ybld
