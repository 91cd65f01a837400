package app

// IntentNamespace exposes the campaign id namespace to external tests.
var IntentNamespace = intentNamespace
