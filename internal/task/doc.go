// Package task runs background jobs in-process. Tasks are pushed onto a
// bounded TaskQueue and executed by a WorkerPool; the Runner owns both and
// drains outstanding work on shutdown. Jobs are fire-and-forget: a failed
// task is logged, never reported back to the request that caused it.
package task
