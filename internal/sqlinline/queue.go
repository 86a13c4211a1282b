package sqlinline

const QPromptQueueSchema = `--sql 5509b89a-15c9-4f17-970a-d2a156c7e2a7
create table if not exists prompt_queue (
    id text primary key,
    prompt text not null,
    normalized_prompt text not null,
    status text not null default 'queued',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    result_ref text,
    error_message text
);
create index if not exists prompt_queue_status_created_idx on prompt_queue (status, created_at, id);
create index if not exists prompt_queue_created_idx on prompt_queue (created_at);
`

const QPromptQueueInsert = `--sql 6b9c813e-d342-4f11-97e9-007ce07186ff
insert into prompt_queue (id, prompt, normalized_prompt, status, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6);
`

const QPromptQueueListQueued = `--sql 8152b8e9-a159-4af8-a3d0-e3e17478bf2d
select id, prompt, normalized_prompt, status, created_at, updated_at, result_ref, error_message
from prompt_queue
where status = 'queued'
order by created_at asc, id asc
limit $1;
`

const QPromptQueueClaim = `--sql 15074d9b-e272-4bbf-a217-b171d416e05d
update prompt_queue
set status = 'working', updated_at = $2
where id = $1 and status = 'queued';
`

const QPromptQueueComplete = `--sql 539e9858-b06e-4a63-b5da-5823a2ebd4e0
update prompt_queue
set status = 'done', result_ref = $2, updated_at = $3
where id = $1 and status = 'working';
`

const QPromptQueueFail = `--sql 135fd9a2-bf20-439a-8019-4c806fce9a1e
update prompt_queue
set status = 'error', error_message = $2, updated_at = $3
where id = $1 and status = 'working';
`

const QPromptQueueGet = `--sql 7c49e675-5241-4c10-9ad0-1b2dbaabc8e9
select id, prompt, normalized_prompt, status, created_at, updated_at, result_ref, error_message
from prompt_queue
where id = $1;
`

const QPromptQueueRecent = `--sql b18eb835-12a8-4529-8892-11ac035d410b
select normalized_prompt
from prompt_queue
where created_at >= $1;
`
