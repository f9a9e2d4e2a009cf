package api

import (
	"net/http"

	"github.com/shaiso/Autocal/internal/scheduler"
)

// ListSchedules возвращает зарегистрированные расписания обслуживания.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	var schedules []scheduler.Schedule
	if h.scheduler != nil {
		schedules = h.scheduler.Schedules()
	}
	if schedules == nil {
		schedules = []scheduler.Schedule{}
	}
	List(w, schedules, len(schedules))
}
