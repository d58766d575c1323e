package mapper

import "github.com/IlianBuh/Wall/internal/domain/models"

// EventsToIds collects ids of the events keeping their order
func EventsToIds(events []models.Event) []int64 {
	length := len(events)
	res := make([]int64, length)

	for i := 0; i < length; i++ {
		res[i] = events[i].Id
	}

	return res
}
