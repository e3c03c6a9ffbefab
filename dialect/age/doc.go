// Package age runs compiled Cypher statements on Apache AGE, the graph
// extension of PostgreSQL, through database/sql and lib/pq.
//
// Each statement is embedded in a call of the cypher function:
//
//	SELECT * FROM ag_catalog.cypher('social', $$ MATCH (p:Person) RETURN p $$) AS (p agtype)
//
// Statement parameters are passed as a single JSON argument. Result values
// are parsed from their agtype text form; vertices and edges become their
// property maps.
//
//	drv, err := age.Open("social", dsn, age.WithLoad(), age.WithSearchPath(`ag_catalog, "$user", public`))
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
package age
