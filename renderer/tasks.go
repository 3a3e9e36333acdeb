// SPDX-License-Identifier: Unlicense OR MIT

package renderer

// EnqueueTask queues fn to run on the render thread, in order with
// the other queued tasks. If Callbacks.FlushTasks is set, the queue
// is only drained by FlushQueuedTasks.
func (r *Renderer) EnqueueTask(fn func()) {
	r.taskMu.Lock()
	r.tasks = append(r.tasks, fn)
	first := len(r.tasks) == 1
	r.taskMu.Unlock()
	if first {
		r.SetHasPendingTasks(true)
	}
}

// FlushQueuedTasks runs the queued tasks. It must be called on the
// render thread.
func (r *Renderer) FlushQueuedTasks() {
	r.taskMu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.SetHasPendingTasks(false)
	r.taskMu.Unlock()
	for _, t := range tasks {
		t()
	}
}

func (r *Renderer) flushTasks() {
	if cb := r.callbacks.FlushTasks; cb != nil {
		cb()
		return
	}
	r.FlushQueuedTasks()
}
