// Package entity declares persisted entities as static descriptor tables.
//
// A Definition lists an entity's writable fields with their type, bounds and
// foreign-key target, plus a Build function that turns a set of values into
// the typed gorm model. Code that needs to create rows generically, such as
// test factories, walks these tables instead of reflecting over structs.
//
//	var BandDefinition = &entity.Definition{
//	    Name:  "Band",
//	    Table: "bands",
//	    Fields: []entity.Field{
//	        {Name: "name", Type: entity.String, MinLen: 1, MaxLen: 255, Unique: true},
//	        {Name: "genre", Type: entity.String, Choices: genres},
//	    },
//	    Build: func(v entity.Values) entity.Model { ... },
//	}
package entity
