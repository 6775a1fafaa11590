package extract

type locatorKind int

const (
	kindLabelCell locatorKind = iota + 1
	kindItemProp
)

// Locator names a structural position in a lookup page.
type Locator struct {
	kind locatorKind
	key  string
}

// LabelCell locates the first <td> of the first table row whose <th> text
// contains label. The match is a case-sensitive substring match.
func LabelCell(label string) Locator {
	return Locator{kind: kindLabelCell, key: label}
}

// ItemProp locates the first element whose itemprop attribute equals name.
func ItemProp(name string) Locator {
	return Locator{kind: kindItemProp, key: name}
}

// String describes the locator for logs.
func (l Locator) String() string {
	switch l.kind {
	case kindLabelCell:
		return "label:" + l.key
	case kindItemProp:
		return "itemprop:" + l.key
	}
	return "unknown"
}

// Positions on the ABR "ABN Lookup" view page.
var (
	LegalName  = ItemProp("legalName")
	ABNStatus  = LabelCell("ABN status")
	EntityType = LabelCell("Entity type")
	GST        = LabelCell("Goods & Services Tax")
	Locality   = ItemProp("addressLocality")
)
