package catalog

import "github.com/mesh-intelligence/mdrimport/pkg/types"

// Column constructors. Every constructor yields a copied, nullable column;
// the modifiers below adjust that.

func text(name string) types.Column {
	return types.Column{Name: name, Type: types.ColText, Copied: true}
}

func integer(name string) types.Column {
	return types.Column{Name: name, Type: types.ColInt, Copied: true}
}

func boolean(name string) types.Column {
	return types.Column{Name: name, Type: types.ColBool, Copied: true}
}

func timestamp(name string) types.Column {
	return types.Column{Name: name, Type: types.ColTimestamp, Copied: true}
}

func notNull(c types.Column) types.Column {
	c.NotNull = true
	return c
}

func withDefault(c types.Column, literal string) types.Column {
	c.Default = literal
	return c
}

// codedOn is filled by the coding stage after import; it is created but
// never copied from staging.
var codedOn = types.Column{Name: "coded_on", Type: types.ColTimestamp}

func studyKey() types.Column  { return notNull(text(StudyKey)) }
func objectKey() types.Column { return notNull(text(ObjectKey)) }

// cols prepends the join key for the entity to the given columns.
func cols(e types.Entity, rest ...types.Column) []types.Column {
	key := studyKey()
	if e == types.EntityObject {
		key = objectKey()
	}
	return append([]types.Column{key}, rest...)
}
