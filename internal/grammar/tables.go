package grammar

// nonLiteral lists colloquial words that have a literary equivalent
var nonLiteral = map[string]bool{
	"furt":      true, // stále
	"fajn":      true, // dobre
	"akurát":    true, // práve
	"šuflík":    true, // zásuvka
	"lavór":     true, // umývadlo
	"kastról":   true, // hrniec
	"fusekle":   true, // ponožky
	"šporák":    true, // sporák
	"špajza":    true, // komora
	"kšeft":     true, // obchod
	"sekírovať": true, // obťažovať
}

// suffixExceptions are words whose endings look like an agreement error but
// are correct, mostly soft-declension adjectives ending in -í in the
// singular.
var suffixExceptions = map[string]bool{
	"cudzí":   true,
	"tretí":   true,
	"boží":    true,
	"páví":    true,
	"vtáčí":   true,
	"líščí":   true,
	"psí":     true,
	"rybí":    true,
	"kozí":    true,
	"kačací":  true,
	"medvedí": true,
	"vlčí":    true,
	"orlí":    true,
	"sokolí":  true,
}

var possessiveLemmas = []string{"môj", "tvoj", "svoj", "náš", "váš"}
