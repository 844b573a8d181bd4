package behaviors

// Builtins returns the built-in behaviors bound to env.
func Builtins(env *Env) []Behavior {
	return []Behavior{
		NewCheckEventCapacity(env),
		NewDetectEmployerBilling(env),
		NewFindOrCreateContact(env),
		NewCreateTransaction(env),
		NewCreateTicket(env),
		NewGenerateInvoice(env),
		NewSendConfirmationEmail(env),
	}
}

// RegisterBuiltins registers all built-in behaviors in the given registry.
func RegisterBuiltins(reg *Registry, env *Env) error {
	for _, b := range Builtins(env) {
		if err := reg.Register(b); err != nil {
			return err
		}
	}
	return nil
}
