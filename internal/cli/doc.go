// Package cli holds the plumbing shared by the gbn-sender and gbn-receiver
// programs: logrus configuration, exit status mapping and signal handling.
package cli
