package dialogue

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	bulletPrefix = regexp.MustCompile(`^[•-]\s*`)
	numberPrefix = regexp.MustCompile(`^\d+[.)]\s*`)
	isoInParens  = regexp.MustCompile(`\((\d{4}-\d{2}-\d{2})\)`)
	relativeSpan = regexp.MustCompile(`(?i)(\d+)\s*(day|week|month|year)s?`)
)

var absoluteLayouts = []string{
	dateLayout,
	"2006/01/02",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 January 2006",
}

// ParseTaskInput splits free text into daily and weekly task lists.
// A line containing "daily:" or "weekly:" switches the bucket; lines before
// any marker are daily. Leading bullets are stripped. Anything else is
// accepted verbatim.
func ParseTaskInput(content string) (daily, weekly []string) {
	daily, weekly = []string{}, []string{}
	isDaily := true

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "daily:") {
			isDaily = true
			continue
		}
		if strings.Contains(lower, "weekly:") {
			isDaily = false
			continue
		}

		task := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if task == "" {
			continue
		}
		if isDaily {
			daily = append(daily, task)
		} else {
			weekly = append(weekly, task)
		}
	}
	return daily, weekly
}

// ParseTargetDate reads an absolute date or a relative span ("16 weeks").
func ParseTargetDate(text string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(text)
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, true
		}
	}

	m := relativeSpan.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	base := startOfDay(now)
	switch strings.ToLower(m[2]) {
	case "day":
		return base.AddDate(0, 0, n), true
	case "week":
		return base.AddDate(0, 0, 7*n), true
	case "month":
		return base.AddDate(0, n, 0), true
	case "year":
		return base.AddDate(n, 0, 0), true
	}
	return time.Time{}, false
}

// ParseMilestoneInput reads one milestone per line. A "(YYYY-MM-DD)" on the
// line sets its date; undated milestones are spread evenly from now to target.
func ParseMilestoneInput(content string, now, target time.Time) []DraftMilestone {
	var titles []string
	var dates []*time.Time

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		line = bulletPrefix.ReplaceAllString(line, "")
		line = numberPrefix.ReplaceAllString(line, "")
		if line == "" {
			continue
		}

		var date *time.Time
		if m := isoInParens.FindStringSubmatch(line); m != nil {
			if t, err := time.ParseInLocation(dateLayout, m[1], now.Location()); err == nil {
				date = &t
				line = strings.TrimSpace(isoInParens.ReplaceAllString(line, ""))
			}
		}
		if line == "" {
			continue
		}
		titles = append(titles, line)
		dates = append(dates, date)
	}

	out := make([]DraftMilestone, 0, len(titles))
	for i, title := range titles {
		d := SpreadDate(now, target, i, len(titles))
		if dates[i] != nil {
			d = *dates[i]
		}
		out = append(out, DraftMilestone{Title: title, Date: d})
	}
	return out
}

// SpreadDate places milestone index of total evenly between now and target;
// the last milestone lands on the target day.
func SpreadDate(now, target time.Time, index, total int) time.Time {
	base := startOfDay(now)
	if total <= 0 {
		return base
	}
	totalDays := int(startOfDay(target).Sub(base).Hours() / 24)
	if totalDays < 0 {
		totalDays = 0
	}
	perMilestone := float64(totalDays) / float64(total)
	return base.AddDate(0, 0, int(perMilestone*float64(index+1)))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
