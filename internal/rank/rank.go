// Package rank maps competitive levels to their display names.
package rank

const Unknown = "Unknown Rank"

var names = map[int]string{
	1:  "Bronze 3",
	2:  "Bronze 2",
	3:  "Bronze 1",
	4:  "Silver 3",
	5:  "Silver 2",
	6:  "Silver 1",
	7:  "Gold 3",
	8:  "Gold 2",
	9:  "Gold 1",
	10: "Platinum 3",
	11: "Platinum 2",
	12: "Platinum 1",
	13: "Diamond 3",
	14: "Diamond 2",
	15: "Diamond 1",
	16: "Grandmaster 3",
	17: "Grandmaster 2",
	18: "Grandmaster 1",
	19: "Celestial 3",
	20: "Celestial 2",
	21: "Celestial 1",
	22: "Eternity",
	23: "One Above All",
}

// Name returns the rank label for level, or Unknown when level is nil or
// outside the table.
func Name(level *int) string {
	if level == nil {
		return Unknown
	}
	if name, ok := names[*level]; ok {
		return name
	}
	return Unknown
}
