/*Package interval implements interval-set operations in a manner optimized
  for genomic regions represented by BED files.
  ReadBED loads raw entries in file order, for callers that query regions
  individually; Union merges touching and overlapping entries into a
  disjoint-interval set supporting fast coverage and overlap queries.
  It assumes every position fits in a PosType, which is currently defined as
  int32.
*/
package interval
