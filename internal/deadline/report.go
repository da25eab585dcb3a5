package deadline

import (
	"sort"
	"strings"
	"time"
)

const displayLayout = "02.01.2006"

// noDescription is rendered when a report item has no post date, topic or block.
const noDescription = "No description"

// BuildFireMessage composes the reminder text for one firing record:
// assignee tag, then post date, topic, block and the still-ahead deadlines,
// each on its own line when present. A record with nothing but a tag yields
// no message ("" means skip).
func BuildFireMessage(r Record, ref time.Time) string {
	parts := []string{r.Tag}
	if !r.PostDate.IsZero() {
		parts = append(parts, "📅 Post: "+r.PostDate.Format(displayLayout))
	}
	if r.Topic != "" {
		parts = append(parts, "🧩 Topic: "+r.Topic)
	}
	if r.Block != "" {
		parts = append(parts, "🧱 Block: "+r.Block)
	}
	if dls := AheadDeadlines(r, ref); len(dls) > 0 {
		ss := make([]string, len(dls))
		for i, d := range dls {
			ss[i] = d.Format(displayLayout)
		}
		parts = append(parts, "⏳ Deadlines: "+strings.Join(ss, ", "))
	}
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts, "\n")
}

type reportItem struct {
	rec   Record
	ahead []time.Time
}

// BuildAheadReport produces a grouped report of the deadlines still ahead
// of ref, optionally restricted to one assignee tag:
//   - records with an empty tag or no ahead deadline are skipped
//   - tags are listed in ascending order
//   - within a tag, items order by (nearest ahead deadline, post date,
//     topic), absent dates sorting last
func BuildAheadReport(records []Record, ref time.Time, tagFilter string) string {
	grouped := map[string][]reportItem{}
	for _, r := range records {
		if r.Tag == "" {
			continue
		}
		if tagFilter != "" && r.Tag != tagFilter {
			continue
		}
		dls := AheadDeadlines(r, ref)
		if len(dls) == 0 {
			continue
		}
		grouped[r.Tag] = append(grouped[r.Tag], reportItem{rec: r, ahead: dls})
	}

	if len(grouped) == 0 {
		if tagFilter != "" {
			return tagFilter + "\n✅ No deadlines ahead (or no rows with this tag)."
		}
		return "✅ No deadlines ahead."
	}

	tags := make([]string, 0, len(grouped))
	for tag := range grouped {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var b strings.Builder
	b.WriteString("📌 Deadlines ahead (from " + ref.Format(displayLayout) + ")")
	if tagFilter != "" {
		b.WriteString(" for " + tagFilter)
	}

	for _, tag := range tags {
		items := grouped[tag]
		sort.SliceStable(items, func(i, j int) bool {
			return itemLess(items[i], items[j])
		})

		b.WriteString("\n\n")
		// Break the leading "@" off so Telegram doesn't ping the user from
		// a plain report.
		b.WriteString(tag[:1] + " " + tag[1:])

		for _, it := range items {
			meta := make([]string, 0, 3)
			if !it.rec.PostDate.IsZero() {
				meta = append(meta, it.rec.PostDate.Format(displayLayout))
			}
			if it.rec.Topic != "" {
				meta = append(meta, it.rec.Topic)
			}
			if it.rec.Block != "" {
				meta = append(meta, it.rec.Block)
			}
			line := noDescription
			if len(meta) > 0 {
				line = strings.Join(meta, " — ")
			}
			b.WriteString("\n• " + line)
			for _, d := range it.ahead {
				b.WriteString("\n  ⏳ " + d.Format(displayLayout))
			}
		}
	}
	return b.String()
}

// itemLess is the deterministic total order within one tag group:
// nearest ahead deadline, then post date (absent dates sort last for both),
// then topic.
func itemLess(a, b reportItem) bool {
	an, bn := nearest(a.ahead), nearest(b.ahead)
	if !an.Equal(bn) {
		return an.Before(bn)
	}
	ap, bp := orMax(a.rec.PostDate), orMax(b.rec.PostDate)
	if !ap.Equal(bp) {
		return ap.Before(bp)
	}
	return a.rec.Topic < b.rec.Topic
}

// maxDate stands in for an absent date so it sorts after every real one.
var maxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func nearest(dls []time.Time) time.Time {
	if len(dls) == 0 {
		return maxDate
	}
	return dls[0]
}

func orMax(t time.Time) time.Time {
	if t.IsZero() {
		return maxDate
	}
	return t
}
