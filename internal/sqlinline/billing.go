package sqlinline

// Ledger row keyed by the payment provider's event (or session) id. The
// primary key is the idempotency guard for webhook redelivery.
const QInsertCreditLedger = `--sql 54c5dcc2-7d38-4751-8f41-2d795bf5acb6
insert into credit_history (event_id, user_id, credits_added, plan, created_at)
values ($1::text, $2::uuid, $3::int, $4::text, now());
`

// Compensating delete for executors that cannot open a transaction: if the
// profile mutation fails after the ledger insert, the row is removed so a
// retry is not blocked by the duplicate guard.
const QDeleteCreditLedger = `--sql 84c3fc47-4f33-45be-87fd-b902aea62504
delete from credit_history
where event_id = $1::text;
`

// Adds the purchased credits and upgrades the plan monotonically. The tier
// merge is computed against the current row under lock so a studio profile
// receiving a late pro event keeps studio.
const QApplyPurchase = `--sql 628fb35e-c323-44f1-8665-1fce4d864b03
with target as (
    select id,
           case when array_position(array['free','pro','studio']::text[], $3::text)
                   > array_position(array['free','pro','studio']::text[], plan)
                then $3::text
                else plan
           end as next_plan
    from profiles
    where id = $1::uuid
    for update
)
update profiles p
set credits = p.credits + $2::int,
    plan = t.next_plan,
    is_pro = t.next_plan in ('pro', 'studio'),
    is_studio = t.next_plan = 'studio',
    updated_at = now()
from target t
where p.id = t.id
returning p.credits, p.plan;
`
