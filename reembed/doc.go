// Package reembed rebuilds the vectors of an existing index.
//
// Records keep their IDs and metadata. Only the vector is recomputed from the
// stored chunk text, which makes it possible to move a knowledge base to a new
// embedding model without acquiring its sources again. The target may be the
// source index itself, when the model's dimension is unchanged, or a new index.
package reembed
