// package remote implements access to the external recommendation services.
//
// All requests flow through the [Gateway], which enforces per-service rate
// limits with exponential backoff on throttling signals and caches responses
// for the duration of one discovery run. [SimilarityClient] and
// [AcousticClient] are typed request builders layered on top of the Gateway;
// they map raw responses into the discovery data model and never bypass the
// Gateway's throttling or cache.
package remote
