package domain

// KeyPrefix namespaces every key this service writes to its key-value store.
const KeyPrefix = "matchdex:"
