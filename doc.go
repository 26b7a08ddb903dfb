// Package presto is a client for Presto and Trino coordinators that hands
// back result rows as typed Go values.
//
// The statement protocol ships every row as a JSON array next to the column
// type text. The client parses that text with package prestotype and
// reshapes each cell into the canonical value its type implies: bigint
// becomes int64, double float64, map an ordered *prestotype.MapValue and so
// on, at any nesting depth.
//
// # Low-level API
//
//	client, err := presto.NewClient("http://coordinator:8080")
//	if err != nil {
//	    return err
//	}
//	session := client.NewSession().Catalog("hive").Schema("default")
//
//	results, _, err := session.Query(ctx, "SELECT id, tags FROM repos")
//	if err != nil {
//	    return err
//	}
//	err = results.Drain(ctx, func(qr *presto.QueryResults) error {
//	    rows, err := qr.Rows()
//	    if err != nil {
//	        return err
//	    }
//	    // rows[i][0] is int64, rows[i][1] is *prestotype.MapValue
//	    return nil
//	})
//
// Sessions carry catalog, schema, user, session properties and the open
// transaction. They are safe for concurrent use and Clone gives an
// independent copy. IsTrino switches the protocol headers to their X-Trino-
// form.
//
// # database/sql
//
// Importing the package registers the "presto" driver:
//
//	db, err := sql.Open("presto", "presto://user@coordinator:8080/hive/default?max_type_depth=32")
//
// Scalars scan into the matching Go types, temporal types into time.Time,
// interval day to second into time.Duration. ARRAY, MAP and ROW columns are
// delivered as JSON text with map entries and row fields in server order;
// scan them with NullSlice, NullMap, NullOrderedMap or NullRow.
package presto
