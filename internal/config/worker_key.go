package config

type WorkerKeyStruct struct {
	PersistTrustAuditsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistTrustAuditsQueue: "persist_trust_audits_queue",
}
