package facebook

import "time"

var portugueseMonths = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// PortugueseMonth names the month the way the funnel spreadsheets do.
func PortugueseMonth(m time.Month) string {
	return portugueseMonths[int(m)-1]
}

// WeekOfMonth returns the 1-based week a date falls in, counting
// partial first weeks from the weekday the month starts on.
func WeekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return (t.Day()+int(first.Weekday())-1)/7 + 1
}
