/*
Package classification defines the ClassificationElement capability consumed
by detection elements, mapping class categories to confidence scores for a
single entity, along with an in-memory implementation.
*/
package classification
