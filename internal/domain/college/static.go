package college

// staticYear tags the built-in table.
const staticYear = 2024

// Static returns the built-in cutoff table.
func Static() *Table {
	type row struct {
		name, location      string
		general, obc, sc, st int
	}
	rows := []row{
		{"AIIMS Delhi", "New Delhi", 50, 150, 600, 1200},
		{"JIPMER", "Puducherry", 500, 1200, 3500, 6000},
		{"Maulana Azad", "New Delhi", 1000, 2200, 6000, 9000},
		{"Government Medical College", "Chandigarh", 2000, 4000, 9000, 14000},
	}
	var cutoffs []Cutoff
	for _, r := range rows {
		for cat, rank := range map[Category]int{General: r.general, OBC: r.obc, SC: r.sc, ST: r.st} {
			cutoffs = append(cutoffs, Cutoff{College: r.name, Location: r.location, Category: cat, Year: staticYear, Rank: rank})
		}
	}
	return NewTable(cutoffs)
}
