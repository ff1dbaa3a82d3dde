// Package rag provides a Go client for the rag-service HTTP API.
//
// The client covers document ingestion (text, file upload, URL fetch),
// retrieval-augmented queries, and collection management:
//
//	client, _ := rag.New("http://localhost:8080", rag.WithAPIKey(key))
//
//	doc, _ := client.Documents("notes").IngestText(ctx, "Go was released in 2009.", nil)
//
//	resp, _ := client.Query(ctx, rag.QueryRequest{
//	    Query:      "When was Go released?",
//	    Collection: "notes",
//	})
//	fmt.Println(resp.Answer)
//
// API errors carry the server's error code and map onto the package
// sentinels, so errors.Is(err, rag.ErrNotFound) works across transports.
package rag
