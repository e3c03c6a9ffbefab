// Package bolt runs compiled Cypher statements on Neo4j and other Bolt
// servers with the official neo4j driver.
//
// A statement runs in the database named by its store, or the database set
// with WithDatabase. Read-only statements are routed to reader members of a
// cluster. Nodes and relationships in results become their property maps.
//
//	drv, err := bolt.Open(ctx, "neo4j://localhost:7687", "neo4j", "secret")
//	if err != nil {
//	    return err
//	}
//	defer drv.Close(ctx)
package bolt
